package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// SaveTOML writes data to a new TOML file. An existing file is left alone
// and ErrConfigExists is returned.
func SaveTOML(filePath string, data interface{}) error {
	file, err := createNew(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(data)
}

// LoadTOML loads a TOML file into a struct.
func LoadTOML(filePath string, data interface{}) error {
	_, err := toml.DecodeFile(filePath, data)
	return err
}

// createNew creates filePath and its parent directories, failing when the
// file already exists.
func createNew(filePath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}
	// #nosec G302 G304 -- config files hold key identifiers, not key material.
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrConfigExists, filePath)
	}
	return file, err
}
