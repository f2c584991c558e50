package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/PolarWolf314/cloudencrypt/internal/audit"
	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/secretstore"
)

// SecretOptions configures the secret workflows.
type SecretOptions struct {
	Env

	// Name identifies the secret in the store.
	Name string

	// Provider overrides the configured secret store.
	Provider string

	// Settings override the config's secrets section.
	Settings map[string]string

	// Open replaces secretstore.Open.
	Open secretstore.Opener
}

// PutSecretOptions configures PutSecret.
type PutSecretOptions struct {
	SecretOptions

	// Value is the secret. Ignored when File is set.
	Value []byte

	// File is read as the secret value.
	File string

	// Metadata is stored alongside the value.
	Metadata map[string]string
}

// GetSecretOptions configures GetSecret.
type GetSecretOptions struct {
	SecretOptions

	// Output, when set, receives the secret data instead of the caller.
	Output string
}

// SecretResult contains the outcome of a secret operation.
type SecretResult struct {
	Name     string
	Provider string

	// Record is set by GetSecret.
	Record secretstore.Record

	// Output is the file GetSecret wrote to.
	Output string
}

// PutSecret creates or replaces a named secret.
func PutSecret(ctx context.Context, opts PutSecretOptions) (*SecretResult, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: secret name is empty", kerrors.ErrInvalidSetting)
	}
	data := opts.Value
	if opts.File != "" {
		var err error
		if data, err = os.ReadFile(opts.File); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, opts.File)
			}
			return nil, fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, opts.File, err)
		}
	}

	result := &SecretResult{Name: opts.Name}
	err := withStore(ctx, opts.SecretOptions, "secret-put", result, func(s secretstore.Store) error {
		return s.Put(ctx, opts.Name, data, opts.Metadata)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetSecret reads a named secret.
//
// Returns ErrSecretNotFound when the secret does not exist.
func GetSecret(ctx context.Context, opts GetSecretOptions) (*SecretResult, error) {
	result := &SecretResult{Name: opts.Name}
	err := withStore(ctx, opts.SecretOptions, "secret-get", result, func(s secretstore.Store) error {
		rec, err := s.Get(ctx, opts.Name)
		if err != nil {
			return err
		}
		result.Record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts.Output != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrIO, err)
		}
		if err := os.WriteFile(opts.Output, result.Record.Data(), 0o600); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, opts.Output, err)
		}
		result.Output = opts.Output
	}
	return result, nil
}

// DeleteSecret removes a named secret. Deleting a missing secret succeeds.
func DeleteSecret(ctx context.Context, opts SecretOptions) (*SecretResult, error) {
	result := &SecretResult{Name: opts.Name}
	err := withStore(ctx, opts, "secret-delete", result, func(s secretstore.Store) error {
		return s.Delete(ctx, opts.Name)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withStore opens the configured store, runs fn and closes the store.
func withStore(ctx context.Context, opts SecretOptions, op string, result *SecretResult, fn func(secretstore.Store) error) (err error) {
	p, err := opts.Env.load()
	if err != nil {
		return err
	}
	cfg, err := p.storeConfig(ctx, opts)
	if err != nil {
		return err
	}
	result.Provider = cfg.Provider()

	open := opts.Open
	if open == nil {
		open = secretstore.Open
	}
	store, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = multierror.Append(err, kerrors.Provider(cfg.Provider(), "close", cerr)).ErrorOrNil()
		}
	}()

	if err := fn(store); err != nil {
		return err
	}

	entry := audit.New(op)
	entry.Provider = cfg.Provider()
	entry.Secret = opts.Name
	audit.Log(p.dir, entry)
	return nil
}

// storeConfig resolves the secret store from the override, then secretStore
// or provider in the config, then auto-detection.
func (p *project) storeConfig(ctx context.Context, opts SecretOptions) (cloud.Config, error) {
	provider := normalize(opts.Provider)
	if provider == "" {
		provider = normalize(p.config.StoreProvider())
	}
	if provider == "" {
		var err error
		if provider, err = p.provider(ctx, ""); err != nil {
			return cloud.Config{}, err
		}
	}
	return cloud.Merge(provider, p.config.Secrets, opts.Settings)
}
