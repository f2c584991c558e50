// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output, and running the CLI in-process.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	logger "github.com/PolarWolf314/cloudencrypt/internal/logging"
	"github.com/PolarWolf314/cloudencrypt/internal/providers"
)

// setupTestEnvironment changes into a fresh project directory with an
// isolated home directory and returns the project path.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))
	t.Setenv("NO_COLOR", "1")

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		ResetGlobalState()
	})

	ResetGlobalState()
	return tempDir
}

// writeLocalConfig writes a .cloudencrypt.yml using the offline local
// provider with a fresh key and the memory secret store.
func writeLocalConfig(t *testing.T, dir string) string {
	t.Helper()
	key := providers.NewLocalKey()
	content := "provider: local\n" +
		"defaultMode: encrypt\n" +
		"autoDetect: false\n" +
		"include:\n  - \"config/**/*.properties\"\n" +
		"kms:\n  key: \"" + key + "\"\n" +
		"secretStore: memory\n"
	writeFile(t, filepath.Join(dir, ".cloudencrypt.yml"), content)
	return key
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// runCLI executes the root command with args and returns the captured output.
func runCLI(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	Logger = logger.Logger{Verbose: verbose, Debug: debug}

	RootCmd.SetArgs(args)
	if stdin != nil {
		RootCmd.SetIn(stdin)
	} else {
		RootCmd.SetIn(bytes.NewReader(nil))
	}
	return captureOutput(func() error {
		return RootCmd.Execute()
	})
}

// ResetGlobalState resets all flag variables to their defaults.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetScanCommandState()
	resetInitCommandState()
	resetStoreCommandState()
	resetFileCommandState()
	resetSecretCommandState()
}

func resetScanCommandState() {
	scanDryRun = false
	scanDecrypt = false
	scanCheck = false
	scanJSON = false
	scanKeepGoing = false
	scanProvider = ""
	scanSettings = nil
}
