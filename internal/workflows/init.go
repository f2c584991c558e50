package workflows

import (
	"context"

	"github.com/PolarWolf314/cloudencrypt/internal/audit"
	"github.com/PolarWolf314/cloudencrypt/internal/configs"
	"github.com/PolarWolf314/cloudencrypt/internal/detect"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Dir receives the config file. Empty means the working directory.
	Dir string

	// Provider seeds the starter settings. If empty, it is auto-detected and
	// falls back to configs.DefaultProvider.
	Provider string

	// Format is configs.FormatYAML (default) or configs.FormatTOML.
	Format string

	// Runner executes auto-detection probes.
	Runner detect.Runner
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	Path     string
	Provider string
	Detected bool
}

// Init writes a starter config.
//
// Returns ErrConfigExists if the directory already has a config file.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	p, err := Env{Dir: opts.Dir, Config: configs.Default()}.load()
	if err != nil {
		return nil, err
	}

	result := &InitResult{Provider: normalize(opts.Provider)}
	if result.Provider == "" {
		runner := opts.Runner
		if runner == nil {
			runner = p.runner
		}
		if detected := detect.Provider(ctx, runner); detected != "" {
			result.Provider = detected
			result.Detected = true
		} else {
			result.Provider = configs.DefaultProvider
		}
	}

	format := opts.Format
	if format == "" {
		format = configs.FormatYAML
	}
	path, err := configs.WriteStarter(p.dir, result.Provider, format)
	if err != nil {
		return nil, err
	}
	result.Path = path

	entry := audit.New("init")
	entry.Provider = result.Provider
	entry.Output = p.rel(path)
	audit.Log(p.dir, entry)

	return result, nil
}
