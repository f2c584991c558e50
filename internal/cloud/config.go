// Package cloud holds the provider-agnostic configuration shared by the KMS
// and secret store layers: a lower-cased provider name plus an immutable bag
// of string settings.
package cloud

import (
	"fmt"
	"sort"
	"strings"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// Config names a provider and carries its settings. The zero value is not
// usable; build one with NewBuilder or Of.
type Config struct {
	provider string
	settings map[string]string
}

// Provider returns the lower-cased provider name.
func (c Config) Provider() string {
	return c.provider
}

// Settings returns a copy of the settings. Mutating it does not affect c.
func (c Config) Settings() map[string]string {
	out := make(map[string]string, len(c.settings))
	for k, v := range c.settings {
		out[k] = v
	}
	return out
}

// Get returns the setting and whether it is present.
func (c Config) Get(key string) (string, bool) {
	v, ok := c.settings[key]
	return v, ok
}

// GetOr returns the setting or fallback when absent.
func (c Config) GetOr(key, fallback string) string {
	if v, ok := c.settings[key]; ok {
		return v
	}
	return fallback
}

// Required returns the setting or a configuration error naming the key.
func (c Config) Required(key string) (string, error) {
	v, ok := c.settings[key]
	if !ok {
		return "", kerrors.MissingSetting(c.provider, key)
	}
	return v, nil
}

// Keys returns the setting names in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.settings))
	for k := range c.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c Config) String() string {
	return fmt.Sprintf("%s%v", c.provider, c.Keys())
}

// Builder accumulates settings, silently dropping blank values.
type Builder struct {
	provider string
	values   map[string]string
}

// NewBuilder starts a config for provider. The name is trimmed and lower-cased.
func NewBuilder(provider string) *Builder {
	return &Builder{
		provider: strings.ToLower(strings.TrimSpace(provider)),
		values:   make(map[string]string),
	}
}

// With stores value under key unless key is empty or value is blank.
// A later call for the same key overwrites the earlier one.
func (b *Builder) With(key, value string) *Builder {
	if key == "" || strings.TrimSpace(value) == "" {
		return b
	}
	b.values[key] = value
	return b
}

// WithAll applies With for every entry.
func (b *Builder) WithAll(values map[string]string) *Builder {
	for k, v := range values {
		b.With(k, v)
	}
	return b
}

// Build returns the immutable config. A blank provider is a configuration error.
func (b *Builder) Build() (Config, error) {
	if b.provider == "" {
		return Config{}, fmt.Errorf("%w: provider name is empty", kerrors.ErrConfiguration)
	}
	settings := make(map[string]string, len(b.values))
	for k, v := range b.values {
		settings[k] = v
	}
	return Config{provider: b.provider, settings: settings}, nil
}

// Of builds a config from a settings map using builder semantics.
func Of(provider string, settings map[string]string) (Config, error) {
	return NewBuilder(provider).WithAll(settings).Build()
}

// Merge layers overrides on top of base, then applies builder semantics.
// A blank override removes nothing; it is dropped like any blank value.
func Merge(provider string, base, overrides map[string]string) (Config, error) {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) == "" {
			continue
		}
		merged[k] = v
	}
	return Of(provider, merged)
}

// ForAWS configures the AWS KMS provider.
func ForAWS(region, keyID string) (Config, error) {
	return NewBuilder("aws").With("region", region).With("keyId", keyID).Build()
}

// ForAzure configures the Azure Key Vault provider with a full key identifier URL.
func ForAzure(keyID string) (Config, error) {
	return NewBuilder("azure").With("keyId", keyID).Build()
}

// ForGCP configures the Google Cloud KMS provider.
func ForGCP(project, location, keyRing, key string) (Config, error) {
	return NewBuilder("gcp").
		With("project", project).
		With("location", location).
		With("keyRing", keyRing).
		With("key", key).
		Build()
}

// ForOCI configures the OCI Vault provider with a crypto endpoint.
func ForOCI(endpoint, keyID string) (Config, error) {
	return NewBuilder("oci").With("endpoint", endpoint).With("keyId", keyID).Build()
}

// ForLocal configures the offline AEAD provider with a base64 256-bit key.
func ForLocal(key string) (Config, error) {
	return NewBuilder("local").With("key", key).Build()
}
