package ui

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withNoColor(t *testing.T) {
	t.Helper()
	os.Setenv("NO_COLOR", "1")
	t.Cleanup(func() { os.Unsetenv("NO_COLOR") })
}

func TestFormatterWithColor(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	original := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = original }()

	result := Code.Sprint("cloud-encrypt --check")
	if strings.Contains(result, "`") {
		t.Errorf("Code.Sprint should not contain backticks when color is enabled, got: %s", result)
	}
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Code.Sprint should contain ANSI escape codes when color is enabled, got: %s", result)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	withNoColor(t)

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "cloud-encrypt init", "`cloud-encrypt init`"},
		{"Path has no decoration", Path, "app.properties", "app.properties"},
		{"Flag has no decoration", Flag, "--dry-run", "--dry-run"},
		{"Key has no decoration", Key, "DB_PASSWORD", "DB_PASSWORD"},
		{"Provider adds brackets", Provider, "aws", "[aws]"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Highlight adds quotes", Highlight, "db/password", "'db/password'"},
		{"Muted adds parentheses", Muted, "3 keys", "(3 keys)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.formatter.Sprint(tt.input); got != tt.want {
				t.Errorf("Sprint(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatterSprintf(t *testing.T) {
	withNoColor(t)

	if got := Code.Sprintf("cloud-encrypt file %s", "inspect"); got != "`cloud-encrypt file inspect`" {
		t.Errorf("Code.Sprintf() = %q", got)
	}
}

func TestMessageHelpers(t *testing.T) {
	withNoColor(t)

	if got := Done("encrypted 2 values"); got != "✓ encrypted 2 values" {
		t.Errorf("Done() = %q", got)
	}
	if got := Failed("could not scan", nil); got != "✗ could not scan" {
		t.Errorf("Failed(nil) = %q", got)
	}
	if got := Failed("could not scan", errors.New("boom")); got != "✗ could not scan\nError: boom" {
		t.Errorf("Failed(err) = %q", got)
	}
	if got := Hint("run init"); got != "→ run init" {
		t.Errorf("Hint() = %q", got)
	}
}

func TestFormatPathsAndKeys(t *testing.T) {
	withNoColor(t)

	if got := FormatPaths([]string{"a.env", "b.yml"}); got != "\n    - a.env\n    - b.yml\n" {
		t.Errorf("FormatPaths() = %q", got)
	}
	if got := FormatKeys([]string{"DB_PASSWORD", "API_TOKEN"}); got != "DB_PASSWORD, API_TOKEN" {
		t.Errorf("FormatKeys() = %q", got)
	}
}

func TestEnsureNewline(t *testing.T) {
	cases := map[string]string{"": "\n", "x": "x\n", "x\n": "x\n"}
	for in, want := range cases {
		if got := EnsureNewline(in); got != want {
			t.Errorf("EnsureNewline(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadAllTrimsOneNewline(t *testing.T) {
	got, err := ReadAll(strings.NewReader("s3cr3t\r\n"))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got != "s3cr3t" {
		t.Errorf("ReadAll() = %q", got)
	}

	got, _ = ReadAll(strings.NewReader("line1\nline2\n\n"))
	if got != "line1\nline2\n" {
		t.Errorf("ReadAll() kept too little: %q", got)
	}
}

func TestIsTerminalRejectsNonFiles(t *testing.T) {
	if IsTerminal(strings.NewReader("x")) {
		t.Error("A strings.Reader is not a terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("A regular file is not a terminal")
	}
}
