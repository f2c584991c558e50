package cmd

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/workflows"
)

func TestScanEncryptsAndDecrypts(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeLocalConfig(t, dir)
	props := filepath.Join(dir, "config", "app.properties")
	writeFile(t, props, "db.password=hunter2\nhost=localhost\n")

	output, err := runCLI(t, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Encrypted 1 value(s)") {
		t.Errorf("Expected success message, got: %s", output)
	}

	encrypted := readFile(t, props)
	if !strings.HasPrefix(encrypted, "db.password=ENC(") || strings.Contains(encrypted, "hunter2") {
		t.Fatalf("Expected encrypted value, got: %s", encrypted)
	}
	if !strings.Contains(encrypted, "host=localhost\n") {
		t.Errorf("Non-sensitive line changed: %s", encrypted)
	}

	ResetGlobalState()
	output, err = runCLI(t, nil, "--decrypt", "config")
	if err != nil {
		t.Fatalf("Decrypt failed: %v\n%s", err, output)
	}
	if got := readFile(t, props); got != "db.password=hunter2\nhost=localhost\n" {
		t.Errorf("Expected original content after decrypt, got: %s", got)
	}
}

func TestScanDryRunLeavesFile(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeLocalConfig(t, dir)
	props := filepath.Join(dir, "config", "app.properties")
	writeFile(t, props, "api.token=abc\n")

	output, err := runCLI(t, nil, "--dry-run")
	if err != nil {
		t.Fatalf("Dry run failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "[dry-run]") {
		t.Errorf("Expected dry-run banner, got: %s", output)
	}
	if got := readFile(t, props); got != "api.token=abc\n" {
		t.Errorf("Dry run modified the file: %s", got)
	}
}

func TestScanCheckFailsOnPlaintext(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeLocalConfig(t, dir)
	writeFile(t, filepath.Join(dir, "config", "app.properties"), "db.password=hunter2\n")

	output, err := runCLI(t, nil, "--check", "--json")
	if !errors.Is(err, kerrors.ErrUnencryptedSecrets) {
		t.Fatalf("Expected ErrUnencryptedSecrets, got: %v", err)
	}
	if !errors.Is(err, ErrReported) {
		t.Errorf("Expected error to be marked as reported")
	}

	var summary workflows.ScanResult
	if err := json.Unmarshal([]byte(output), &summary); err != nil {
		t.Fatalf("Expected JSON summary, got %q: %v", output, err)
	}
	if summary.Mode != "check" || len(summary.InsecureFiles) != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestScanCheckPasses(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeLocalConfig(t, dir)
	writeFile(t, filepath.Join(dir, "config", "app.properties"), "db.password=ENC(abc)\n")

	output, err := runCLI(t, nil, "--check")
	if err != nil {
		t.Fatalf("Check failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "All secrets are encrypted.") {
		t.Errorf("Expected all-clear message, got: %s", output)
	}
}

func TestScanWithoutTargetsShowsHint(t *testing.T) {
	setupTestEnvironment(t)

	output, err := runCLI(t, nil)
	if !errors.Is(err, kerrors.ErrNoFilesFound) {
		t.Fatalf("Expected ErrNoFilesFound, got: %v", err)
	}
	if !strings.Contains(output, "cloud-encrypt init") {
		t.Errorf("Expected init hint, got: %s", output)
	}
}

func TestScanRejectsBadSet(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeLocalConfig(t, dir)

	_, err := runCLI(t, nil, "--set", "novalue", "config")
	if !errors.Is(err, kerrors.ErrInvalidSetting) {
		t.Fatalf("Expected ErrInvalidSetting, got: %v", err)
	}
}

func TestScanMissingSettingShowsHint(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeFile(t, filepath.Join(dir, "config", "app.properties"), "db.password=hunter2\n")

	output, err := runCLI(t, nil, "--provider", "local", "config")
	if !errors.Is(err, kerrors.ErrMissingSetting) {
		t.Fatalf("Expected ErrMissingSetting, got: %v", err)
	}
	if !strings.Contains(output, "--set KEY=VALUE") {
		t.Errorf("Expected --set hint, got: %s", output)
	}
}
