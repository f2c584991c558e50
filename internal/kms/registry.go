package kms

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// Factory builds capabilities for one provider. Either constructor may be nil
// when the provider supports only one direction.
type Factory struct {
	NewEncryptor func(ctx context.Context, cfg cloud.Config) (Encryptor, error)
	NewDecryptor func(ctx context.Context, cfg cloud.Config) (Decryptor, error)
}

// Registry maps lower-cased provider names to factories. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry is populated by providers.RegisterBuiltins.
var DefaultRegistry = NewRegistry()

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		panic("kms: empty provider name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory for name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Providers returns the registered names in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewEncryptor builds an encryptor for cfg.Provider(). An unknown provider
// fails without contacting any backend.
func (r *Registry) NewEncryptor(ctx context.Context, cfg cloud.Config) (Encryptor, error) {
	f, err := r.factory(cfg.Provider())
	if err != nil {
		return nil, err
	}
	if f.NewEncryptor == nil {
		return nil, fmt.Errorf("%w: %s cannot encrypt", kerrors.ErrUnsupportedProvider, cfg.Provider())
	}
	return f.NewEncryptor(ctx, cfg)
}

// NewDecryptor builds a decryptor for cfg.Provider().
func (r *Registry) NewDecryptor(ctx context.Context, cfg cloud.Config) (Decryptor, error) {
	f, err := r.factory(cfg.Provider())
	if err != nil {
		return nil, err
	}
	if f.NewDecryptor == nil {
		return nil, fmt.Errorf("%w: %s cannot decrypt", kerrors.ErrUnsupportedProvider, cfg.Provider())
	}
	return f.NewDecryptor(ctx, cfg)
}

func (r *Registry) factory(name string) (Factory, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return Factory{}, fmt.Errorf("%w: %q (registered: %s)",
			kerrors.ErrUnsupportedProvider, name, strings.Join(r.Providers(), ", "))
	}
	return f, nil
}
