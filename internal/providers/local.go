package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"
	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
	"github.com/hashicorp/go-kms-wrapping/v2/aead"
	"golang.org/x/crypto/argon2"
	"google.golang.org/protobuf/proto"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

const (
	LocalName = "local"

	localKeySize = 32

	// Argon2id parameters for passphrase keys.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Local encrypts offline with an AES-GCM key held in locked memory. The
// ciphertext is the base64 of a protobuf wrapping.BlobInfo.
type Local struct {
	wrapper *aead.Wrapper
	key     *memguard.LockedBuffer
}

func newLocalEncryptor(ctx context.Context, cfg cloud.Config) (kms.Encryptor, error) {
	return NewLocal(ctx, cfg)
}

func newLocalDecryptor(ctx context.Context, cfg cloud.Config) (kms.Decryptor, error) {
	return NewLocal(ctx, cfg)
}

// NewLocal builds the key from "key" (base64 of 32 bytes) or from
// "passphrase" and "salt" via Argon2id. "keyId" names the key inside the
// blob and defaults to "local".
func NewLocal(ctx context.Context, cfg cloud.Config) (*Local, error) {
	key, err := localKey(cfg)
	if err != nil {
		return nil, err
	}

	w := aead.NewWrapper()
	if _, err := w.SetConfig(ctx, wrapping.WithKeyId(cfg.GetOr("keyId", LocalName))); err != nil {
		key.Destroy()
		return nil, kerrors.Provider(LocalName, "configure wrapper", err)
	}
	// The wrapper keeps a reference to the locked bytes; Close wipes them.
	if err := w.SetAesGcmKeyBytes(key.Bytes()); err != nil {
		key.Destroy()
		return nil, kerrors.Provider(LocalName, "set key", err)
	}
	return &Local{wrapper: w, key: key}, nil
}

func localKey(cfg cloud.Config) (*memguard.LockedBuffer, error) {
	if encoded, ok := cfg.Get("key"); ok {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: local key is not valid base64", kerrors.ErrInvalidSetting)
		}
		if len(raw) != localKeySize {
			memguard.WipeBytes(raw)
			return nil, fmt.Errorf("%w: local key is %d bytes, want %d", kerrors.ErrInvalidSetting, len(raw), localKeySize)
		}
		return memguard.NewBufferFromBytes(raw), nil
	}

	passphrase, ok := cfg.Get("passphrase")
	if !ok {
		return nil, kerrors.MissingSetting(LocalName, "key")
	}
	salt, err := cfg.Required("salt")
	if err != nil {
		return nil, err
	}
	derived := argon2.IDKey([]byte(passphrase), []byte(salt), argonTime, argonMemory, argonThreads, localKeySize)
	return memguard.NewBufferFromBytes(derived), nil
}

func (l *Local) Encrypt(ctx context.Context, plaintext string) (string, error) {
	blob, err := l.wrapper.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", kerrors.Provider(LocalName, "encrypt", err)
	}
	raw, err := proto.Marshal(blob)
	if err != nil {
		return "", kerrors.Provider(LocalName, "marshal blob", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (l *Local) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	raw, err := decodeCiphertext(LocalName, ciphertext)
	if err != nil {
		return "", err
	}
	blob := new(wrapping.BlobInfo)
	if err := proto.Unmarshal(raw, blob); err != nil {
		return "", fmt.Errorf("%w: local ciphertext is not a blob: %v", kerrors.ErrFormat, err)
	}
	plain, err := l.wrapper.Decrypt(ctx, blob)
	if err != nil {
		return "", kerrors.Provider(LocalName, "decrypt", err)
	}
	return string(plain), nil
}

// Close wipes the key.
func (l *Local) Close() error {
	l.key.Destroy()
	return nil
}

// NewLocalKey returns a fresh base64 key suitable for the "key" setting.
func NewLocalKey() string {
	buf := memguard.NewBufferRandom(localKeySize)
	defer buf.Destroy()
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
