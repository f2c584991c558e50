package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolarWolf314/cloudencrypt/internal/audit"
	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	"github.com/PolarWolf314/cloudencrypt/internal/configs"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

// reverse is a reversible stand-in for a KMS backend.
type reverse struct{ counts *counts }

type counts struct{ built, closed int }

func (r reverse) Encrypt(_ context.Context, s string) (string, error) { return "rev:" + flip(s), nil }

func (r reverse) Decrypt(_ context.Context, s string) (string, error) {
	if !strings.HasPrefix(s, "rev:") {
		return "", kerrors.Provider("fake", "decrypt", errors.New("bad ciphertext"))
	}
	return flip(strings.TrimPrefix(s, "rev:")), nil
}

func (r reverse) Close() error { r.counts.closed++; return nil }

func flip(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func testRegistry(c *counts, names ...string) *kms.Registry {
	r := kms.NewRegistry()
	f := kms.Factory{
		NewEncryptor: func(context.Context, cloud.Config) (kms.Encryptor, error) {
			c.built++
			return reverse{c}, nil
		},
		NewDecryptor: func(context.Context, cloud.Config) (kms.Decryptor, error) {
			c.built++
			return reverse{c}, nil
		},
	}
	for _, n := range append([]string{"fake"}, names...) {
		r.Register(n, f)
	}
	return r
}

// fakeRunner succeeds for the listed commands.
type fakeRunner map[string]string

func (f fakeRunner) Run(_ context.Context, name string, _ ...string) ([]byte, error) {
	out, ok := f[name]
	if !ok {
		return nil, errors.New("executable file not found")
	}
	return []byte(out), nil
}

func testEnv(t *testing.T, c *counts, cfg *configs.Config) Env {
	t.Helper()
	if cfg == nil {
		cfg = configs.Default()
		cfg.Provider = "fake"
	}
	return Env{
		Dir:      t.TempDir(),
		Registry: testRegistry(c, "aws"),
		Config:   cfg,
		Runner:   fakeRunner{},
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseSettings(t *testing.T) {
	got, err := ParseSettings("set", []string{"region=us-east-1", " keyId = alias/app ", "region=eu-west-1", "context=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"region": "eu-west-1", "keyId": "alias/app", "context": "a=b"}, got)

	for _, bad := range []string{"novalue", "=value", " =value"} {
		_, err := ParseSettings("meta", []string{bad})
		assert.ErrorIs(t, err, kerrors.ErrInvalidSetting, bad)
		assert.Contains(t, err.Error(), "--meta")
	}
}

func TestScanEncryptsTargets(t *testing.T) {
	c := &counts{}
	env := testEnv(t, c, nil)
	path := writeTestFile(t, env.Dir, "conf/app.properties", "db.password=hunter2\nhost=localhost\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"conf"}})
	require.NoError(t, err)

	assert.Equal(t, "fake", res.Provider)
	assert.Equal(t, "encrypt", res.Mode)
	assert.Equal(t, 1, res.FileCount)
	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, []string{filepath.Join("conf", "app.properties")}, res.Written)
	assert.Equal(t, "db.password=ENC(rev:2retnuh)\nhost=localhost\n", readTestFile(t, path))
	assert.Equal(t, 1, c.built)
	assert.Equal(t, 1, c.closed)

	entries, err := audit.ReadEntries(env.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scan", entries[0].Operation)
	assert.Equal(t, []string{"db.password"}, entries[0].Keys)
	assert.NotEmpty(t, entries[0].ID)
}

func TestScanUsesConfigIncludesAndExcludes(t *testing.T) {
	cfg := configs.Default()
	cfg.Provider = "fake"
	cfg.Include = []string{"src/**/*.properties"}
	cfg.Exclude = []string{"src/skip/**"}
	env := testEnv(t, &counts{}, cfg)
	writeTestFile(t, env.Dir, "src/main/app.properties", "api.token=abc\n")
	skipped := writeTestFile(t, env.Dir, "src/skip/app.properties", "api.token=abc\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env})
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.Equal(t, filepath.Join("src", "main", "app.properties"), res.Results[0].File)
	assert.Equal(t, "api.token=abc\n", readTestFile(t, skipped))
}

func TestScanWithoutTargets(t *testing.T) {
	env := testEnv(t, &counts{}, nil)

	_, err := Scan(context.Background(), ScanOptions{Env: env})
	assert.ErrorIs(t, err, kerrors.ErrNoFilesFound)
}

func TestScanCheckReportsPlaintext(t *testing.T) {
	c := &counts{}
	cfg := configs.Default()
	cfg.AutoDetect = false
	env := testEnv(t, c, cfg)
	path := writeTestFile(t, env.Dir, "app.properties", "db.password=hunter2\napi.key=ENC(x)\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}, Check: true})
	require.ErrorIs(t, err, kerrors.ErrUnencryptedSecrets)

	assert.Equal(t, "check", res.Mode)
	assert.Equal(t, unknownProvider, res.Provider)
	assert.Equal(t, []string{"app.properties"}, res.InsecureFiles)
	assert.Equal(t, "db.password=hunter2\napi.key=ENC(x)\n", readTestFile(t, path))
	assert.Zero(t, c.built)
}

func TestScanCheckPassesWhenEncrypted(t *testing.T) {
	env := testEnv(t, &counts{}, nil)
	writeTestFile(t, env.Dir, "app.properties", "db.password=ENC(abc)\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}, Check: true})
	require.NoError(t, err)
	assert.Empty(t, res.InsecureFiles)
}

func TestScanDefaultModeFromConfig(t *testing.T) {
	cfg := configs.Default()
	cfg.Provider = "fake"
	cfg.DefaultMode = configs.ModeDecrypt
	env := testEnv(t, &counts{}, cfg)
	path := writeTestFile(t, env.Dir, "app.properties", "db.password=ENC(rev:2retnuh)\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}})
	require.NoError(t, err)

	assert.Equal(t, "decrypt", res.Mode)
	assert.Equal(t, "db.password=hunter2\n", readTestFile(t, path))
}

func TestScanExplicitDecryptBeatsDefaultCheck(t *testing.T) {
	cfg := configs.Default()
	cfg.Provider = "fake"
	cfg.DefaultMode = configs.ModeCheck
	env := testEnv(t, &counts{}, cfg)
	writeTestFile(t, env.Dir, "app.properties", "db.password=ENC(rev:2retnuh)\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}, Decrypt: true})
	require.NoError(t, err)
	assert.Equal(t, "decrypt", res.Mode)
}

func TestScanDryRunWritesNothing(t *testing.T) {
	c := &counts{}
	env := testEnv(t, c, nil)
	path := writeTestFile(t, env.Dir, "app.properties", "db.password=hunter2\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}, DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Changed)
	assert.Empty(t, res.Written)
	assert.Equal(t, "db.password=hunter2\n", readTestFile(t, path))
	assert.Zero(t, c.built)
}

func TestScanNoProvider(t *testing.T) {
	cfg := configs.Default()
	cfg.AutoDetect = false
	env := testEnv(t, &counts{}, cfg)
	writeTestFile(t, env.Dir, "app.properties", "db.password=hunter2\n")

	_, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}})
	assert.ErrorIs(t, err, kerrors.ErrNoProvider)
	assert.ErrorIs(t, err, kerrors.ErrConfiguration)
}

func TestScanAutoDetectsProvider(t *testing.T) {
	cfg := configs.Default()
	env := testEnv(t, &counts{}, cfg)
	env.Runner = fakeRunner{"aws": `{"Account":"123"}`}
	writeTestFile(t, env.Dir, "app.properties", "db.password=hunter2\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}})
	require.NoError(t, err)
	assert.Equal(t, "aws", res.Provider)
}

func TestScanProviderOverrideWins(t *testing.T) {
	cfg := configs.Default()
	cfg.Provider = "gcp"
	env := testEnv(t, &counts{}, cfg)
	writeTestFile(t, env.Dir, "app.properties", "db.password=hunter2\n")

	res, err := Scan(context.Background(), ScanOptions{Env: env, Targets: []string{"app.properties"}, Provider: "FAKE"})
	require.NoError(t, err)
	assert.Equal(t, "fake", res.Provider)
}

func TestScanKeepGoing(t *testing.T) {
	cfg := configs.Default()
	cfg.Provider = "fake"
	env := testEnv(t, &counts{}, cfg)
	writeTestFile(t, env.Dir, "a.properties", "db.password=ENC(garbage)\n")
	good := writeTestFile(t, env.Dir, "b.properties", "db.password=ENC(rev:2retnuh)\n")
	opts := ScanOptions{Env: env, Targets: []string{"a.properties", "b.properties"}, Decrypt: true}

	_, err := Scan(context.Background(), opts)
	require.ErrorIs(t, err, kerrors.ErrProvider)
	assert.Equal(t, "db.password=ENC(rev:2retnuh)\n", readTestFile(t, good))

	opts.KeepGoing = true
	res, err := Scan(context.Background(), opts)
	require.ErrorIs(t, err, kerrors.ErrProvider)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "b.properties", res.Results[0].File)
	assert.Equal(t, "db.password=hunter2\n", readTestFile(t, good))
}

func TestStoreUpsertsProperty(t *testing.T) {
	env := testEnv(t, &counts{}, nil)
	path := writeTestFile(t, env.Dir, "conf/app.properties", "host=localhost\ndb.password=old\n")

	res, err := Store(context.Background(), StoreOptions{Env: env, Secret: "db.password=hunter2", Output: "conf/app.properties"})
	require.NoError(t, err)

	assert.Equal(t, "ENC(rev:2retnuh)", res.Ciphertext)
	assert.Equal(t, "db.password", res.Name)
	assert.Equal(t, path, res.Output)
	assert.False(t, res.Appended)
	assert.Equal(t, "host=localhost\ndb.password=ENC(rev:2retnuh)\n", readTestFile(t, path))
}

func TestStoreCreatesOutput(t *testing.T) {
	env := testEnv(t, &counts{}, nil)

	res, err := Store(context.Background(), StoreOptions{Env: env, Secret: "hunter2", Name: "api.token", Output: "new/dir/app.properties"})
	require.NoError(t, err)
	assert.Equal(t, "api.token=ENC(rev:2retnuh)\n", readTestFile(t, res.Output))
}

func TestStoreAppendsWithoutName(t *testing.T) {
	env := testEnv(t, &counts{}, nil)
	path := writeTestFile(t, env.Dir, "secrets.txt", "first\n")

	res, err := Store(context.Background(), StoreOptions{Env: env, Secret: "hunter2", Output: "secrets.txt", NoWrap: true})
	require.NoError(t, err)

	assert.True(t, res.Appended)
	assert.Equal(t, "rev:2retnuh", res.Ciphertext)
	assert.Equal(t, "first\nrev:2retnuh\n", readTestFile(t, path))
}

func TestStoreReadsStdin(t *testing.T) {
	env := testEnv(t, &counts{}, nil)

	res, err := Store(context.Background(), StoreOptions{Env: env, Secret: "ignored", Stdin: strings.NewReader("  hunter2 \n")})
	require.NoError(t, err)
	assert.Equal(t, "ENC(rev:2retnuh)", res.Ciphertext)

	res, err = Store(context.Background(), StoreOptions{Env: env, Secret: "fallback", Stdin: strings.NewReader("\n")})
	require.NoError(t, err)
	assert.Equal(t, "ENC(rev:kcabllaf)", res.Ciphertext)
}

func TestStoreRequiresValue(t *testing.T) {
	env := testEnv(t, &counts{}, nil)

	for _, secret := range []string{"", "  ", "key="} {
		_, err := Store(context.Background(), StoreOptions{Env: env, Secret: secret})
		assert.ErrorIs(t, err, kerrors.ErrInvalidSetting, secret)
	}
}

func TestStoreUnknownProvider(t *testing.T) {
	env := testEnv(t, &counts{}, nil)

	_, err := Store(context.Background(), StoreOptions{Env: env, Secret: "x", Provider: "nope"})
	assert.ErrorIs(t, err, kerrors.ErrUnsupportedProvider)
}

func TestFileRoundTrip(t *testing.T) {
	c := &counts{}
	env := testEnv(t, c, nil)
	writeTestFile(t, env.Dir, "plain.txt", "top secret\n")

	enc, err := EncryptFile(context.Background(), FileOptions{Env: env, Input: "plain.txt", Output: "out/plain.enc"})
	require.NoError(t, err)
	assert.Equal(t, "fake", enc.Provider)

	meta, err := InspectFile(context.Background(), InspectOptions{Dir: env.Dir, Path: "out/plain.enc"})
	require.NoError(t, err)
	assert.Equal(t, "fake", meta.Provider)

	dec, err := DecryptFile(context.Background(), FileOptions{Env: env, Input: "out/plain.enc", Output: "plain.out"})
	require.NoError(t, err)
	assert.Equal(t, "top secret\n", readTestFile(t, dec.Output))
	assert.Equal(t, 2, c.built)
	assert.Equal(t, 2, c.closed)

	entries, err := audit.ReadEntries(env.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "file-encrypt", entries[0].Operation)
	assert.Equal(t, "file-decrypt", entries[1].Operation)
}

func TestDecryptFileProviderMismatch(t *testing.T) {
	c := &counts{}
	env := testEnv(t, c, nil)
	writeTestFile(t, env.Dir, "plain.txt", "x")

	_, err := EncryptFile(context.Background(), FileOptions{Env: env, Input: "plain.txt", Output: "plain.enc"})
	require.NoError(t, err)

	_, err = DecryptFile(context.Background(), FileOptions{Env: env, Input: "plain.enc", Output: "out.txt", Provider: "aws"})
	assert.ErrorIs(t, err, kerrors.ErrProviderMismatch)
	assert.Equal(t, 1, c.built)
}

func TestInspectFileRejectsPlaintext(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "plain.txt", "hello\n----\n")

	_, err := InspectFile(context.Background(), InspectOptions{Dir: dir, Path: "plain.txt"})
	assert.ErrorIs(t, err, kerrors.ErrNotEnvelope)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	res, err := Init(context.Background(), InitOptions{Dir: dir, Runner: fakeRunner{"az": "{}"}})
	require.NoError(t, err)
	assert.Equal(t, "azure", res.Provider)
	assert.True(t, res.Detected)
	assert.Equal(t, filepath.Join(dir, ".cloudencrypt.yml"), res.Path)

	_, err = Init(context.Background(), InitOptions{Dir: dir, Provider: "gcp"})
	assert.ErrorIs(t, err, kerrors.ErrConfigExists)
}

func TestInitFallsBackToDefaultProvider(t *testing.T) {
	dir := t.TempDir()

	res, err := Init(context.Background(), InitOptions{Dir: dir, Format: configs.FormatTOML, Runner: fakeRunner{}})
	require.NoError(t, err)
	assert.Equal(t, configs.DefaultProvider, res.Provider)
	assert.False(t, res.Detected)
	assert.Equal(t, filepath.Join(dir, ".cloudencrypt.toml"), res.Path)
}
