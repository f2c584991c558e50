package workflows

import (
	"context"
	"path/filepath"

	"github.com/PolarWolf314/cloudencrypt/internal/audit"
	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	"github.com/PolarWolf314/cloudencrypt/internal/envelope"
)

// FileOptions configures EncryptFile and DecryptFile.
type FileOptions struct {
	Env

	// Input and Output are file paths, relative to Env.Dir unless absolute.
	Input  string
	Output string

	// Provider overrides the configured provider.
	Provider string

	// Settings override the config's kms section.
	Settings map[string]string

	// Envelope replaces the default envelope service, mainly for tests.
	Envelope *envelope.Service
}

// FileResult contains the outcome of a file operation.
type FileResult struct {
	Input    string
	Output   string
	Provider string
}

// EncryptFile seals Input into Output as an envelope.
func EncryptFile(ctx context.Context, opts FileOptions) (*FileResult, error) {
	return runFile(ctx, opts, "file-encrypt", (*envelope.Service).EncryptFile)
}

// DecryptFile opens the envelope at Input and writes the plaintext to Output.
//
// Returns ErrProviderMismatch when the file was sealed for another provider
// and ErrAuthenticationFailed when the body was tampered with.
func DecryptFile(ctx context.Context, opts FileOptions) (*FileResult, error) {
	return runFile(ctx, opts, "file-decrypt", (*envelope.Service).DecryptFile)
}

type fileOp func(s *envelope.Service, ctx context.Context, input, output string, cfg cloud.Config) error

func runFile(ctx context.Context, opts FileOptions, op string, fn fileOp) (*FileResult, error) {
	p, err := opts.Env.load()
	if err != nil {
		return nil, err
	}
	cfg, err := p.resolveKMS(ctx, opts.Provider, opts.Settings)
	if err != nil {
		return nil, err
	}

	svc := opts.Envelope
	if svc == nil {
		svc = envelope.New(p.registry)
	}

	input, output := p.abs(opts.Input), p.abs(opts.Output)
	if err := fn(svc, ctx, input, output, cfg); err != nil {
		return nil, err
	}

	entry := audit.New(op)
	entry.Provider = cfg.Provider()
	entry.Files = []string{p.rel(input)}
	entry.Output = p.rel(output)
	audit.Log(p.dir, entry)

	return &FileResult{Input: input, Output: output, Provider: cfg.Provider()}, nil
}

// InspectOptions configures InspectFile.
type InspectOptions struct {
	// Dir resolves a relative Path. Empty means the working directory.
	Dir  string
	Path string
}

// InspectFile reads the envelope header of Path without contacting a provider.
func InspectFile(_ context.Context, opts InspectOptions) (envelope.FileMetadata, error) {
	path := opts.Path
	if opts.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(opts.Dir, path)
	}
	return envelope.Inspect(path)
}

func (p *project) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.dir, path)
}
