package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders one kind of CLI content, falling back to plain-text
// decorations when color is off.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor reports whether NO_COLOR is set or fatih/color detected a dumb terminal.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands. `backticks` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file or directory paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Flag formats CLI flags like --dry-run.
	Flag = Formatter{color.New(color.FgYellow), "", ""}

	// Key formats property names found by a scan. Bold, no decoration without color.
	Key = Formatter{color.New(color.FgMagenta, color.Bold), "", ""}

	// Provider formats KMS and secret store provider names. [brackets] without color.
	Provider = Formatter{color.New(color.FgBlue), "[", "]"}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Info formats hints and directional arrows.
	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats user values such as secret names. 'quotes' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary text. (parentheses) without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// Done prefixes msg with a green check mark.
func Done(msg string) string {
	return Success.Sprint("✓") + " " + msg
}

// Failed prefixes msg with a red cross and, when err is non-nil, appends it
// on its own line.
func Failed(msg string, err error) string {
	out := Error.Sprint("✗") + " " + msg
	if err != nil {
		out += "\n" + Error.Sprint("Error: ") + err.Error()
	}
	return out
}

// Hint renders an arrow followed by msg.
func Hint(msg string) string {
	return Info.Sprint("→") + " " + msg
}

// DryRunBanner is prepended to messages describing changes that were not written.
func DryRunBanner() string {
	return Warning.Sprint("[dry-run]")
}

// FormatPaths renders paths as an indented bullet list starting on a new line.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatKeys joins property names with commas, each rendered with Key.
func FormatKeys(keys []string) string {
	rendered := make([]string, len(keys))
	for i, k := range keys {
		rendered[i] = Key.Sprint(k)
	}
	return strings.Join(rendered, ", ")
}
