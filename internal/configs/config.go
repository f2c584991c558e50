package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// FileNames are the config file names looked up in each directory, in order.
var FileNames = []string{".cloudencrypt.yml", ".cloudencrypt.yaml", ".cloudencrypt.toml"}

// EnvPrefix prefixes environment overrides, e.g. CLOUDENCRYPT_PROVIDER.
const EnvPrefix = "CLOUDENCRYPT"

// Modes accepted by defaultMode.
const (
	ModeEncrypt = "encrypt"
	ModeDecrypt = "decrypt"
	ModeCheck   = "check"
)

// Config is the project configuration.
type Config struct {
	Provider    string   `yaml:"provider" toml:"provider"`
	DefaultMode string   `yaml:"defaultMode" toml:"defaultMode"`
	Include     []string `yaml:"include" toml:"include"`
	Exclude     []string `yaml:"exclude" toml:"exclude"`
	JSON        bool     `yaml:"json" toml:"json"`
	AutoDetect  bool     `yaml:"autoDetect" toml:"autoDetect"`
	// KMS holds provider settings such as keyId or region.
	KMS map[string]string `yaml:"kms" toml:"kms"`
	// SecretStore names the secret store backend; it defaults to Provider.
	SecretStore string `yaml:"secretStore,omitempty" toml:"secretStore,omitempty"`
	// Secrets holds secret store settings.
	Secrets map[string]string `yaml:"secrets,omitempty" toml:"secrets,omitempty"`

	// Path is the file the config was read from, empty when none was found.
	Path string `yaml:"-" toml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultMode: ModeEncrypt,
		AutoDetect:  true,
		KMS:         make(map[string]string),
		Secrets:     make(map[string]string),
	}
}

// Decrypt reports whether decrypt is the default mode.
func (c *Config) Decrypt() bool { return strings.EqualFold(c.DefaultMode, ModeDecrypt) }

// Check reports whether check is the default mode.
func (c *Config) Check() bool { return strings.EqualFold(c.DefaultMode, ModeCheck) }

// StoreProvider returns SecretStore, falling back to Provider.
func (c *Config) StoreProvider() string {
	if c.SecretStore != "" {
		return c.SecretStore
	}
	return c.Provider
}

// Find returns the first config file in dir and then in the home directory.
// It returns "" when there is none.
func Find(dir string) string {
	dirs := []string{dir}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, d := range dirs {
		for _, name := range FileNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path
			}
		}
	}
	return ""
}

// Load reads the first config found by Find and applies CLOUDENCRYPT_*
// environment overrides to its scalar fields. Without a file the defaults
// plus environment overrides are returned.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("defaultMode", ModeEncrypt)
	v.SetDefault("autoDetect", true)
	v.SetDefault("json", false)

	path := Find(dir)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", kerrors.ErrConfiguration, path, err)
		}
	}

	cfg := Default()
	cfg.Path = path
	cfg.Provider = strings.ToLower(strings.TrimSpace(v.GetString("provider")))
	cfg.DefaultMode = v.GetString("defaultMode")
	cfg.Include = v.GetStringSlice("include")
	cfg.Exclude = v.GetStringSlice("exclude")
	cfg.JSON = v.GetBool("json")
	cfg.AutoDetect = v.GetBool("autoDetect")
	cfg.SecretStore = strings.ToLower(strings.TrimSpace(v.GetString("secretStore")))

	switch strings.ToLower(cfg.DefaultMode) {
	case ModeEncrypt, ModeDecrypt, ModeCheck:
	default:
		return nil, fmt.Errorf("%w: defaultMode %q must be encrypt, decrypt or check", kerrors.ErrInvalidSetting, cfg.DefaultMode)
	}

	if path != "" {
		if err := loadSettings(path, cfg); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", kerrors.ErrConfiguration, path, err)
		}
	}
	return cfg, nil
}

func configType(path string) string {
	if strings.HasSuffix(path, ".toml") {
		return "toml"
	}
	return "yaml"
}

// settingsFile mirrors the map sections of a config file. viper folds keys to
// lower case, so these sections are decoded directly to keep keyId intact.
type settingsFile struct {
	KMS     map[string]interface{} `yaml:"kms" toml:"kms"`
	Secrets map[string]interface{} `yaml:"secrets" toml:"secrets"`
}

func loadSettings(path string, cfg *Config) error {
	var raw settingsFile
	if configType(path) == "toml" {
		if err := LoadTOML(path, &raw); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	cfg.KMS = stringMap(raw.KMS)
	cfg.Secrets = stringMap(raw.Secrets)
	return nil
}

// stringMap renders scalar values as strings and drops nil ones.
func stringMap(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

// Exists reports whether dir already holds a config file.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			return true
		}
	}
	return false
}
