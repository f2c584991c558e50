// Package secretstore keeps named secrets in a cloud secret manager, an S3
// compatible bucket, or memory. Remote backends store the JSON payload
// produced by Encode.
package secretstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// Store is implemented by every backend.
type Store interface {
	// Put creates the secret or replaces its value.
	Put(ctx context.Context, name string, data []byte, metadata map[string]string) error
	// Get returns ErrSecretNotFound when name does not exist.
	Get(ctx context.Context, name string) (Record, error)
	// Delete removes name. Deleting a missing secret is not an error.
	Delete(ctx context.Context, name string) error
	Close() error
}

// GetBytes returns only the data of a secret.
func GetBytes(ctx context.Context, s Store, name string) ([]byte, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return rec.Data(), nil
}

// Opener builds a Store from configuration. It validates required settings
// before creating any client.
type Opener func(ctx context.Context, cfg cloud.Config) (Store, error)

var (
	mu      sync.RWMutex
	openers = map[string]Opener{
		"aws":    openAWS,
		"amazon": openAWS,
		"gcp":    openGCP,
		"google": openGCP,
		"azure":  openAzure,
		"oci":    openOCI,
		"oracle": openOCI,
		"s3":     openS3,
		"minio":  openS3,
		"memory": openMemory,
		"local":  openMemory,
	}
)

// Register adds or replaces the opener for each name.
func Register(opener Opener, names ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, n := range names {
		openers[strings.ToLower(n)] = opener
	}
}

// Names returns every registered provider name and alias.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(openers))
	for n := range openers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open returns the Store for cfg.Provider().
func Open(ctx context.Context, cfg cloud.Config) (Store, error) {
	mu.RLock()
	opener, ok := openers[cfg.Provider()]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: secret store %q", kerrors.ErrUnsupportedProvider, cfg.Provider())
	}
	return opener(ctx, cfg)
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", kerrors.ErrSecretNotFound, name)
}
