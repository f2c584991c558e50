package configs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// isolate points HOME at an empty directory so a developer's own config
// cannot leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Expected no path, got %q", cfg.Path)
	}
	if cfg.DefaultMode != ModeEncrypt || !cfg.AutoDetect || cfg.JSON {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.Decrypt() || cfg.Check() {
		t.Error("Default mode should be encrypt")
	}
}

func TestLoadYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".cloudencrypt.yml"), `provider: GCP
defaultMode: check
include:
  - conf/**/*.properties
exclude:
  - target/**
json: true
autoDetect: false
kms:
  project: acme
  keyRing: app-secrets
  port: 8200
secretStore: memory
secrets:
  vaultUrl: https://v
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Provider != "gcp" {
		t.Errorf("Expected provider gcp, got %q", cfg.Provider)
	}
	if !cfg.Check() {
		t.Errorf("Expected check mode, got %q", cfg.DefaultMode)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "conf/**/*.properties" {
		t.Errorf("Unexpected include: %v", cfg.Include)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "target/**" {
		t.Errorf("Unexpected exclude: %v", cfg.Exclude)
	}
	if !cfg.JSON || cfg.AutoDetect {
		t.Errorf("Unexpected flags: json=%v autoDetect=%v", cfg.JSON, cfg.AutoDetect)
	}
	if cfg.KMS["keyRing"] != "app-secrets" {
		t.Errorf("Expected kms keys to keep their case, got %v", cfg.KMS)
	}
	if cfg.KMS["port"] != "8200" {
		t.Errorf("Expected numeric values as strings, got %q", cfg.KMS["port"])
	}
	if cfg.StoreProvider() != "memory" || cfg.Secrets["vaultUrl"] != "https://v" {
		t.Errorf("Unexpected secret store config: %q %v", cfg.SecretStore, cfg.Secrets)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".cloudencrypt.toml"), `provider = "aws"
defaultMode = "decrypt"

[kms]
region = "eu-west-1"
keyId = "alias/app"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "aws" || !cfg.Decrypt() {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.KMS["keyId"] != "alias/app" || cfg.KMS["region"] != "eu-west-1" {
		t.Errorf("Unexpected kms: %v", cfg.KMS)
	}
	if cfg.StoreProvider() != "aws" {
		t.Errorf("Secret store should fall back to provider, got %q", cfg.StoreProvider())
	}
}

func TestLoadPrefersWorkingDirectoryOverHome(t *testing.T) {
	home := isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(home, ".cloudencrypt.yml"), "provider: azure\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "azure" {
		t.Errorf("Expected home config to be used, got %q", cfg.Provider)
	}

	writeFile(t, filepath.Join(dir, ".cloudencrypt.yml"), "provider: oci\n")
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "oci" {
		t.Errorf("Expected working directory config to win, got %q", cfg.Provider)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".cloudencrypt.yml"), "provider: aws\ndefaultMode: encrypt\n")
	t.Setenv("CLOUDENCRYPT_PROVIDER", "gcp")
	t.Setenv("CLOUDENCRYPT_DEFAULTMODE", "check")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "gcp" || !cfg.Check() {
		t.Errorf("Expected env overrides, got provider=%q mode=%q", cfg.Provider, cfg.DefaultMode)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".cloudencrypt.yml"), "defaultMode: shred\n")

	_, err := Load(dir)
	if !errors.Is(err, kerrors.ErrConfiguration) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".cloudencrypt.yml"), "provider: [unclosed\n")

	_, err := Load(dir)
	if !errors.Is(err, kerrors.ErrConfiguration) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
}

func TestWriteStarterRoundTrips(t *testing.T) {
	for _, format := range []string{FormatYAML, FormatTOML} {
		t.Run(format, func(t *testing.T) {
			isolate(t)
			dir := t.TempDir()

			path, err := WriteStarter(dir, "GCP", format)
			if err != nil {
				t.Fatalf("WriteStarter failed: %v", err)
			}
			if !strings.HasSuffix(path, map[string]string{FormatYAML: ".yml", FormatTOML: ".toml"}[format]) {
				t.Errorf("Unexpected path %s", path)
			}

			cfg, err := Load(dir)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Path != path {
				t.Errorf("Expected %s to be loaded, got %s", path, cfg.Path)
			}
			if cfg.Provider != "gcp" || cfg.DefaultMode != ModeEncrypt || !cfg.AutoDetect {
				t.Errorf("Unexpected starter: %+v", cfg)
			}
			if cfg.KMS["keyRing"] != "app-secrets" || cfg.KMS["project"] != "your-gcp-project" {
				t.Errorf("Unexpected starter kms: %v", cfg.KMS)
			}
			if len(cfg.Include) != 3 || len(cfg.Exclude) != 4 {
				t.Errorf("Unexpected include/exclude: %v %v", cfg.Include, cfg.Exclude)
			}
		})
	}
}

func TestWriteStarterRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".cloudencrypt.toml"), "provider = \"aws\"\n")

	_, err := WriteStarter(dir, "aws", FormatYAML)
	if !errors.Is(err, kerrors.ErrConfigExists) {
		t.Fatalf("Expected ErrConfigExists, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".cloudencrypt.yml")); !os.IsNotExist(err) {
		t.Error("Starter file should not have been created")
	}
}

func TestWriteStarterUnknownFormat(t *testing.T) {
	_, err := WriteStarter(t.TempDir(), "aws", "ini")
	if !errors.Is(err, kerrors.ErrInvalidSetting) {
		t.Fatalf("Expected ErrInvalidSetting, got %v", err)
	}
}

func TestStarterProviders(t *testing.T) {
	tests := []struct {
		provider string
		key      string
	}{
		{"", "region"},
		{"aws", "keyId"},
		{"azure", "keyId"},
		{"oci", "endpoint"},
		{"local", "key"},
		{"custom", "keyId"},
	}
	for _, tc := range tests {
		cfg := Starter(tc.provider)
		if _, ok := cfg.KMS[tc.key]; !ok {
			t.Errorf("Starter(%q) missing kms %q: %v", tc.provider, tc.key, cfg.KMS)
		}
	}
	if Starter("").Provider != DefaultProvider {
		t.Errorf("Expected default provider %q", DefaultProvider)
	}
}
