// Package kms defines the two-operation capability every key management
// backend provides, a registry that builds capabilities from a cloud.Config,
// and the ENC(...) convention for inline ciphertext.
package kms

import (
	"context"
	"io"
)

// Encryptor turns plaintext into provider ciphertext. Both sides are text;
// callers base64-encode binary data first.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
}

// Decryptor reverses Encryptor.
type Decryptor interface {
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// EncryptFunc adapts a function to Encryptor.
type EncryptFunc func(ctx context.Context, plaintext string) (string, error)

func (f EncryptFunc) Encrypt(ctx context.Context, plaintext string) (string, error) {
	return f(ctx, plaintext)
}

// DecryptFunc adapts a function to Decryptor.
type DecryptFunc func(ctx context.Context, ciphertext string) (string, error)

func (f DecryptFunc) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	return f(ctx, ciphertext)
}

// Close releases v if it holds resources. Capabilities backed by SDK clients
// implement io.Closer; everything else is a no-op.
func Close(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
