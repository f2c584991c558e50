// Package detect guesses the active cloud provider by asking each vendor CLI
// whether it holds a logged-in session.
package detect

import (
	"context"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs real commands. Missing executables fail fast.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, err
	}
	return exec.CommandContext(ctx, path, args...).Output()
}

// Probe is one provider check.
type Probe struct {
	Provider string
	Command  string
	Args     []string
	// NeedsOutput requires non-blank stdout besides a zero exit status.
	NeedsOutput bool
}

// Probes run in order; the first success wins.
var Probes = []Probe{
	{Provider: "aws", Command: "aws", Args: []string{"sts", "get-caller-identity"}},
	{Provider: "azure", Command: "az", Args: []string{"account", "show"}},
	{Provider: "gcp", Command: "gcloud", Args: []string{"auth", "list", "--filter=status:ACTIVE", "--format=value(account)"}, NeedsOutput: true},
	{Provider: "oci", Command: "oci", Args: []string{"session", "validate"}},
}

// Provider returns the first provider whose probe succeeds, or "" when none
// does. A nil runner uses ExecRunner. Cancelling ctx stops the remaining probes.
func Provider(ctx context.Context, runner Runner) string {
	if runner == nil {
		runner = ExecRunner{}
	}
	for _, p := range Probes {
		if ctx.Err() != nil {
			return ""
		}
		out, err := runner.Run(ctx, p.Command, p.Args...)
		if err != nil {
			continue
		}
		if p.NeedsOutput && strings.TrimSpace(string(out)) == "" {
			continue
		}
		return p.Provider
	}
	return ""
}
