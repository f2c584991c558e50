package kms

import (
	"context"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	"github.com/hashicorp/go-multierror"
)

// Client encrypts and decrypts short values such as passwords embedded in
// configuration files. Each call opens and closes its own capability.
type Client struct {
	registry *Registry
}

// NewClient returns a client over r. A nil r uses DefaultRegistry.
func NewClient(r *Registry) *Client {
	if r == nil {
		r = DefaultRegistry
	}
	return &Client{registry: r}
}

// EncryptValue encrypts plaintext with cfg's provider, wrapping the result in
// ENC(...) when wrap is set.
func (c *Client) EncryptValue(ctx context.Context, cfg cloud.Config, plaintext string, wrap bool) (out string, err error) {
	enc, err := c.registry.NewEncryptor(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := Close(enc); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	ciphertext, err := enc.Encrypt(ctx, plaintext)
	if err != nil {
		return "", err
	}
	if wrap {
		return Wrap(ciphertext), nil
	}
	return ciphertext, nil
}

// DecryptValue unwraps ciphertext if needed and decrypts it with cfg's provider.
func (c *Client) DecryptValue(ctx context.Context, cfg cloud.Config, ciphertext string) (out string, err error) {
	dec, err := c.registry.NewDecryptor(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := Close(dec); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	return dec.Decrypt(ctx, Unwrap(ciphertext))
}
