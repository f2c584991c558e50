// Package envelope seals whole files with a per-file AES-256-GCM data key
// that is itself protected by a KMS provider.
//
// An envelope is a short text header followed by the base64 ciphertext:
//
//	DSCOPE-KMS-FILE-ENC-v1
//	provider:aws
//	encKey:<provider ciphertext of base64(data key)>
//	iv:<base64 nonce>
//	algo:AES/GCM/NoPadding
//	----
//	<base64(ciphertext || tag), 76 chars per line, CRLF separated>
//
// The header is not authenticated. Only the body is protected by the GCM tag.
package envelope

import (
	"bufio"
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"github.com/hashicorp/go-multierror"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

const (
	dataKeySize = 32
	nonceSize   = 12
)

// Service encrypts and decrypts envelope files.
type Service struct {
	registry *kms.Registry
	random   io.Reader
}

// Option configures a Service.
type Option func(*Service)

// WithRandom replaces crypto/rand as the source of data keys and nonces.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// New returns a Service resolving providers through registry. A nil registry
// uses kms.DefaultRegistry.
func New(registry *kms.Registry, opts ...Option) *Service {
	if registry == nil {
		registry = kms.DefaultRegistry
	}
	s := &Service{registry: registry, random: rand.Reader}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EncryptFile seals input into output using a fresh data key wrapped by
// cfg's provider. Parent directories of output are created and an existing
// output is truncated.
//
// Returns ErrFileNotFound or ErrNotRegularFile for a bad input, a
// configuration error for an unknown provider, or a ProviderError when the
// data key cannot be wrapped.
func (s *Service) EncryptFile(ctx context.Context, input, output string, cfg cloud.Config) (err error) {
	if err := checkRegularFile(input); err != nil {
		return err
	}

	enc, err := s.registry.NewEncryptor(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCapability(enc, &err)

	dataKey, err := s.newDataKey()
	if err != nil {
		return err
	}
	defer dataKey.Destroy()

	iv := make([]byte, nonceSize)
	if _, err := io.ReadFull(s.random, iv); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	wrappedKey, err := enc.Encrypt(ctx, base64.StdEncoding.EncodeToString(dataKey.Bytes()))
	if err != nil {
		return err
	}

	plaintext, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, input, err)
	}

	aead, err := newGCM(dataKey.Bytes())
	if err != nil {
		return err
	}
	sealed := aead.Seal(nil, iv, plaintext, nil)

	var out bytes.Buffer
	if err := writeHeader(&out, cfg.Provider(), wrappedKey, iv); err != nil {
		return err
	}
	out.WriteString(encodeMIME(sealed))

	return writeOutput(output, out.Bytes(), 0o644)
}

// DecryptFile opens an envelope produced by EncryptFile and writes the
// plaintext to output. The header provider must equal cfg.Provider(); a
// mismatch is reported before any decryptor is built.
//
// Returns ErrProviderMismatch, a format error for a malformed header or body,
// ErrAuthenticationFailed when the tag does not verify (output is not
// touched), or a ProviderError from the backend.
func (s *Service) DecryptFile(ctx context.Context, input, output string, cfg cloud.Config) (err error) {
	h, body, err := readEnvelope(input)
	if err != nil {
		return err
	}
	if h.provider != cfg.Provider() {
		return fmt.Errorf("%w: file encrypted with provider %q but config targets %q",
			kerrors.ErrProviderMismatch, h.provider, cfg.Provider())
	}

	iv, err := base64.StdEncoding.DecodeString(h.iv)
	if err != nil {
		return fmt.Errorf("%w: iv is not valid base64", kerrors.ErrMalformedBody)
	}
	if len(iv) != nonceSize {
		return fmt.Errorf("%w: iv is %d bytes, want %d", kerrors.ErrMalformedBody, len(iv), nonceSize)
	}
	sealed, err := decodeMIME(body)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrMalformedBody, err)
	}

	dec, err := s.registry.NewDecryptor(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCapability(dec, &err)

	keyText, err := dec.Decrypt(ctx, h.encryptedKey)
	if err != nil {
		return err
	}
	rawKey, err := base64.StdEncoding.DecodeString(keyText)
	if err != nil {
		return fmt.Errorf("%w: data key is not valid base64", kerrors.ErrMalformedBody)
	}
	if len(rawKey) != dataKeySize {
		memguard.WipeBytes(rawKey)
		return fmt.Errorf("%w: data key is %d bytes, want %d", kerrors.ErrMalformedBody, len(rawKey), dataKeySize)
	}
	dataKey := memguard.NewBufferFromBytes(rawKey)
	defer dataKey.Destroy()

	aead, err := newGCM(dataKey.Bytes())
	if err != nil {
		return err
	}
	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return kerrors.ErrAuthenticationFailed
	}

	return writeOutput(output, plaintext, 0o600)
}

// Inspect parses the header of path. It never contacts a provider and never
// decodes the body.
func (s *Service) Inspect(path string) (FileMetadata, error) {
	return Inspect(path)
}

// Inspect parses the header of path without a Service.
func Inspect(path string) (FileMetadata, error) {
	if err := checkRegularFile(path); err != nil {
		return FileMetadata{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	defer f.Close()

	h, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return FileMetadata{}, err
	}
	return h.metadata(), nil
}

func (s *Service) newDataKey() (*memguard.LockedBuffer, error) {
	raw := make([]byte, dataKeySize)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return nil, fmt.Errorf("generating data key: %w", err)
	}
	// NewBufferFromBytes wipes raw.
	return memguard.NewBufferFromBytes(raw), nil
}

func readEnvelope(path string) (header, string, error) {
	if err := checkRegularFile(path); err != nil {
		return header{}, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return header{}, "", fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return header{}, "", err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return header{}, "", fmt.Errorf("%w: reading envelope body: %v", kerrors.ErrIO, err)
	}
	return h, string(body), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrMalformedBody, err)
	}
	return cipher.NewGCM(block)
}

func checkRegularFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", kerrors.ErrNotRegularFile, path)
	}
	return nil
}

func writeOutput(path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", kerrors.ErrIO, dir, err)
		}
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, path, err)
	}
	return nil
}

// closeCapability releases c and folds a close failure into *errp.
func closeCapability(c any, errp *error) {
	if cerr := kms.Close(c); cerr != nil {
		*errp = multierror.Append(*errp, cerr).ErrorOrNil()
	}
}
