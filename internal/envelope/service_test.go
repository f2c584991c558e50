package envelope

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

// calls counts how a fake provider was used.
type calls struct {
	encryptors, decryptors, closes int
}

type fakeCapability struct{ c *calls }

// Encrypt tags the text so the wrapped key differs from the raw one.
func (f fakeCapability) Encrypt(_ context.Context, s string) (string, error) {
	return "wrapped:" + s, nil
}

func (f fakeCapability) Decrypt(_ context.Context, s string) (string, error) {
	return strings.TrimPrefix(s, "wrapped:"), nil
}

func (f fakeCapability) Close() error {
	f.c.closes++
	return nil
}

func newFakeRegistry(names ...string) (*kms.Registry, *calls) {
	c := &calls{}
	r := kms.NewRegistry()
	for _, name := range names {
		r.Register(name, kms.Factory{
			NewEncryptor: func(context.Context, cloud.Config) (kms.Encryptor, error) {
				c.encryptors++
				return fakeCapability{c}, nil
			},
			NewDecryptor: func(context.Context, cloud.Config) (kms.Decryptor, error) {
				c.decryptors++
				return fakeCapability{c}, nil
			},
		})
	}
	return r, c
}

func mustConfig(t *testing.T, provider string) cloud.Config {
	t.Helper()
	cfg, err := cloud.Of(provider, map[string]string{"keyId": "test"})
	require.NoError(t, err)
	return cfg
}

func writeInput(t *testing.T, dir string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, "plain.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRoundTrip(t *testing.T) {
	binary := make([]byte, 4096)
	_, err := rand.Read(binary)
	require.NoError(t, err)

	inputs := map[string][]byte{
		"empty":  {},
		"text":   []byte("db.password=hunter2\n"),
		"binary": binary,
		"nulls":  {0x00, 0xff, 0xfe, 0x00},
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			reg, c := newFakeRegistry("aws")
			svc := New(reg)
			cfg := mustConfig(t, "aws")

			in := writeInput(t, dir, data)
			sealed := filepath.Join(dir, "out", "sealed.enc")
			restored := filepath.Join(dir, "restored", "plain.bin")

			require.NoError(t, svc.EncryptFile(context.Background(), in, sealed, cfg))
			require.NoError(t, svc.DecryptFile(context.Background(), sealed, restored, cfg))

			got, err := os.ReadFile(restored)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, got), "plaintext mismatch")
			assert.Equal(t, 2, c.closes)
		})
	}
}

func TestEncryptWritesExactHeader(t *testing.T) {
	dir := t.TempDir()
	reg, _ := newFakeRegistry("gcp")
	random := bytes.NewReader(append(bytes.Repeat([]byte{1}, dataKeySize), bytes.Repeat([]byte{2}, nonceSize)...))
	svc := New(reg, WithRandom(random))

	in := writeInput(t, dir, bytes.Repeat([]byte("x"), 200))
	out := filepath.Join(dir, "sealed.enc")
	require.NoError(t, svc.EncryptFile(context.Background(), in, out, mustConfig(t, "gcp")))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	content := string(raw)

	wantKey := "wrapped:" + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, dataKeySize))
	wantIV := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, nonceSize))
	wantHeader := strings.Join([]string{
		"DSCOPE-KMS-FILE-ENC-v1",
		"provider:gcp",
		"encKey:" + wantKey,
		"iv:" + wantIV,
		"algo:AES/GCM/NoPadding",
		"----",
	}, "\n") + "\n"
	require.True(t, strings.HasPrefix(content, wantHeader), "header was:\n%s", content)

	body := strings.TrimPrefix(content, wantHeader)
	assert.False(t, strings.HasSuffix(body, "\r\n"), "body must not end with a separator")
	lines := strings.Split(body, "\r\n")
	require.Greater(t, len(lines), 1)
	for i, line := range lines {
		if i < len(lines)-1 {
			assert.Len(t, line, 76)
		} else {
			assert.LessOrEqual(t, len(line), 76)
		}
		assert.NotContains(t, line, "\n")
	}
	// 200 bytes of plaintext plus a 16 byte tag.
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(lines, ""))
	require.NoError(t, err)
	assert.Len(t, decoded, 216)
}

func TestEncryptUsesFreshKeyPerCall(t *testing.T) {
	dir := t.TempDir()
	reg, _ := newFakeRegistry("aws")
	svc := New(reg)
	cfg := mustConfig(t, "aws")
	in := writeInput(t, dir, []byte("same input"))

	a := filepath.Join(dir, "a.enc")
	b := filepath.Join(dir, "b.enc")
	require.NoError(t, svc.EncryptFile(context.Background(), in, a, cfg))
	require.NoError(t, svc.EncryptFile(context.Background(), in, b, cfg))

	ma, err := Inspect(a)
	require.NoError(t, err)
	mb, err := Inspect(b)
	require.NoError(t, err)
	assert.NotEqual(t, ma.EncryptedKey, mb.EncryptedKey)
}

func TestInspectNeverBuildsDecryptor(t *testing.T) {
	dir := t.TempDir()
	reg, c := newFakeRegistry("azure")
	svc := New(reg)

	in := writeInput(t, dir, []byte("payload"))
	out := filepath.Join(dir, "sealed.enc")
	require.NoError(t, svc.EncryptFile(context.Background(), in, out, mustConfig(t, "azure")))

	meta, err := svc.Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, "azure", meta.Provider)
	assert.Equal(t, Algorithm, meta.Algorithm)
	assert.True(t, strings.HasPrefix(meta.EncryptedKey, "wrapped:"))
	assert.Zero(t, c.decryptors)
}

func TestInspectIgnoresUndecodableBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sealed.enc")
	content := "DSCOPE-KMS-FILE-ENC-v1\nprovider:oci\nencKey:abc\niv:AAAA\n----\n!!!not base64!!!"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	meta, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, FileMetadata{Provider: "oci", Algorithm: Algorithm, EncryptedKey: "abc"}, meta)
}

func TestDecryptProviderMismatch(t *testing.T) {
	dir := t.TempDir()
	reg, c := newFakeRegistry("aws", "gcp")
	svc := New(reg)

	in := writeInput(t, dir, []byte("payload"))
	sealed := filepath.Join(dir, "sealed.enc")
	require.NoError(t, svc.EncryptFile(context.Background(), in, sealed, mustConfig(t, "aws")))

	out := filepath.Join(dir, "out.txt")
	err := svc.DecryptFile(context.Background(), sealed, out, mustConfig(t, "gcp"))
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrProviderMismatch)
	assert.ErrorIs(t, err, kerrors.ErrConfiguration)
	assert.Zero(t, c.decryptors)
	assert.NoFileExists(t, out)
}

func TestDecryptTamperedBody(t *testing.T) {
	dir := t.TempDir()
	reg, c := newFakeRegistry("aws")
	svc := New(reg)
	cfg := mustConfig(t, "aws")

	in := writeInput(t, dir, []byte("the quick brown fox jumps over the lazy dog"))
	sealed := filepath.Join(dir, "sealed.enc")
	require.NoError(t, svc.EncryptFile(context.Background(), in, sealed, cfg))

	raw, err := os.ReadFile(sealed)
	require.NoError(t, err)
	idx := bytes.Index(raw, []byte("----\n")) + len("----\n")
	// Swap the first body character for another valid base64 character.
	if raw[idx] == 'A' {
		raw[idx] = 'B'
	} else {
		raw[idx] = 'A'
	}
	require.NoError(t, os.WriteFile(sealed, raw, 0o600))

	out := filepath.Join(dir, "out.txt")
	err = svc.DecryptFile(context.Background(), sealed, out, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrIntegrity)
	assert.NoFileExists(t, out)
	assert.Equal(t, 2, c.closes, "decryptor must be closed on tag failure")
}

func TestDecryptRejectsMalformedFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{
			name:    "missing magic",
			content: "SOMETHING-ELSE\nprovider:aws\nencKey:a\niv:b\n----\nAAAA",
			want:    kerrors.ErrNotEnvelope,
		},
		{
			name:    "missing delimiter",
			content: "DSCOPE-KMS-FILE-ENC-v1\nprovider:aws\nencKey:a\niv:b\nAAAA",
			want:    kerrors.ErrMissingDelimiter,
		},
		{
			name:    "missing iv",
			content: "DSCOPE-KMS-FILE-ENC-v1\nprovider:aws\nencKey:a\n----\nAAAA",
			want:    kerrors.ErrMissingHeaderField,
		},
		{
			name:    "unknown algorithm",
			content: "DSCOPE-KMS-FILE-ENC-v1\nprovider:aws\nencKey:a\niv:AAAAAAAAAAAAAAAA\nalgo:DES\n----\nAAAA",
			want:    kerrors.ErrUnsupportedAlgorithm,
		},
		{
			name:    "garbled body",
			content: "DSCOPE-KMS-FILE-ENC-v1\nprovider:aws\nencKey:a\niv:AAAAAAAAAAAAAAAA\n----\nQUJD*&^%",
			want:    kerrors.ErrMalformedBody,
		},
		{
			name:    "empty file",
			content: "",
			want:    kerrors.ErrMissingDelimiter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "bad.enc")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			reg, c := newFakeRegistry("aws")
			err := New(reg).DecryptFile(context.Background(), path, filepath.Join(dir, "out"), mustConfig(t, "aws"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, kerrors.ErrFormat)
			assert.Zero(t, c.decryptors)
		})
	}
}

func TestHeaderToleratesCRLFAndCase(t *testing.T) {
	content := "DSCOPE-KMS-FILE-ENC-v1\r\nProvider : aws\r\nENCKEY:k\r\nno colon line\r\n:orphan\r\nIV:v\r\n----\r\nbody"
	h, err := readHeader(bufioReader(content))
	require.NoError(t, err)
	assert.Equal(t, header{provider: "aws", encryptedKey: "k", iv: "v", algorithm: Algorithm}, h)
}

func TestMissingInput(t *testing.T) {
	dir := t.TempDir()
	reg, c := newFakeRegistry("aws")
	svc := New(reg)
	cfg := mustConfig(t, "aws")

	err := svc.EncryptFile(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "out"), cfg)
	assert.ErrorIs(t, err, kerrors.ErrFileNotFound)
	assert.ErrorIs(t, err, kerrors.ErrIO)

	err = svc.EncryptFile(context.Background(), dir, filepath.Join(dir, "out"), cfg)
	assert.ErrorIs(t, err, kerrors.ErrNotRegularFile)

	_, err = Inspect(dir)
	assert.ErrorIs(t, err, kerrors.ErrNotRegularFile)

	assert.Zero(t, c.encryptors)
}

func TestUnknownProviderFailsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	reg, _ := newFakeRegistry("aws")
	in := writeInput(t, dir, []byte("x"))
	out := filepath.Join(dir, "out.enc")

	err := New(reg).EncryptFile(context.Background(), in, out, mustConfig(t, "vault"))
	assert.ErrorIs(t, err, kerrors.ErrUnsupportedProvider)
	assert.NoFileExists(t, out)
}
