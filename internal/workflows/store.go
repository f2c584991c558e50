package workflows

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/cloudencrypt/internal/audit"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
	"github.com/PolarWolf314/cloudencrypt/internal/scan"
)

// StoreOptions configures the store workflow.
type StoreOptions struct {
	Env

	// Secret is the plaintext, or KEY=VALUE when Name is empty.
	Secret string

	// Stdin, when set, is read to EOF and trimmed. Non-empty input replaces Secret.
	Stdin io.Reader

	// NoWrap returns the raw ciphertext instead of ENC(...).
	NoWrap bool

	// Output is a file to write the ciphertext to. With a Name the property
	// is inserted or replaced, otherwise the ciphertext is appended as a line.
	Output string

	// Name is the property key written to Output.
	Name string

	// Provider overrides the configured provider.
	Provider string

	// Settings override the config's kms section.
	Settings map[string]string
}

// StoreResult contains the outcome of a store operation.
type StoreResult struct {
	// Ciphertext is the encrypted value, wrapped unless NoWrap was set.
	Ciphertext string

	Provider string

	// Name is the property key, parsed from KEY=VALUE when not given.
	Name string

	// Output is the path written to, empty when no output was requested.
	Output string

	// Appended is true when the ciphertext was appended as a bare line.
	Appended bool
}

// Store encrypts one value with the resolved provider.
//
// Returns ErrInvalidSetting when no value was given and ErrNoProvider when
// no provider can be resolved.
func Store(ctx context.Context, opts StoreOptions) (*StoreResult, error) {
	name, plaintext := opts.Name, opts.Secret
	if name == "" && strings.Contains(plaintext, "=") {
		kv := strings.SplitN(plaintext, "=", 2)
		name, plaintext = kv[0], kv[1]
	}

	if opts.Stdin != nil {
		data, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: reading stdin: %v", kerrors.ErrIO, err)
		}
		if fromStdin := strings.TrimSpace(string(data)); fromStdin != "" {
			plaintext = fromStdin
		}
	}
	if strings.TrimSpace(plaintext) == "" {
		return nil, fmt.Errorf("%w: provide a secret value to store (argument or --stdin)", kerrors.ErrInvalidSetting)
	}

	p, err := opts.Env.load()
	if err != nil {
		return nil, err
	}
	cfg, err := p.resolveKMS(ctx, opts.Provider, opts.Settings)
	if err != nil {
		return nil, err
	}

	ciphertext, err := kms.NewClient(p.registry).EncryptValue(ctx, cfg, plaintext, !opts.NoWrap)
	if err != nil {
		return nil, err
	}

	result := &StoreResult{Ciphertext: ciphertext, Provider: cfg.Provider(), Name: name}

	if opts.Output != "" {
		path := opts.Output
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.dir, path)
		}
		if name != "" {
			err = upsertFile(path, name, ciphertext)
		} else {
			err = appendLine(path, ciphertext)
			result.Appended = true
		}
		if err != nil {
			return nil, err
		}
		result.Output = path
	}

	entry := audit.New("store")
	entry.Provider = result.Provider
	if name != "" {
		entry.Keys = []string{name}
	}
	if result.Output != "" {
		entry.Output = p.rel(result.Output)
	}
	audit.Log(p.dir, entry)

	return result, nil
}

func upsertFile(path, key, value string) error {
	var lines []string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if content := strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"); content != "" {
			lines = strings.Split(content, "\n")
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, path, err)
	}

	lines = scan.UpsertProperty(lines, key, value)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	// #nosec G306 -- properties files are shared with the application.
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, path, err)
	}
	return nil
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	// #nosec G302 G304 -- output path is chosen by the user.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", kerrors.ErrIO, path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, path, err)
	}
	return nil
}
