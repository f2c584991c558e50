package workflows

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	"github.com/PolarWolf314/cloudencrypt/internal/configs"
	"github.com/PolarWolf314/cloudencrypt/internal/detect"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

// Env is shared by every workflow. The zero value uses the process working
// directory, kms.DefaultRegistry, the config found by configs.Load and the
// installed cloud CLIs for auto-detection.
type Env struct {
	// Dir is the project directory. Relative targets and the audit log live here.
	Dir string

	// Registry resolves KMS providers.
	Registry *kms.Registry

	// Config overrides loading the project configuration.
	Config *configs.Config

	// Runner executes auto-detection probes.
	Runner detect.Runner
}

// project is an Env with every default filled in.
type project struct {
	dir      string
	registry *kms.Registry
	config   *configs.Config
	runner   detect.Runner
}

func (e Env) load() (*project, error) {
	p := &project{dir: e.Dir, registry: e.Registry, config: e.Config, runner: e.Runner}
	if p.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w: getting working directory: %v", kerrors.ErrIO, err)
		}
		p.dir = wd
	}
	if p.registry == nil {
		p.registry = kms.DefaultRegistry
	}
	if p.config == nil {
		cfg, err := configs.Load(p.dir)
		if err != nil {
			return nil, err
		}
		p.config = cfg
	}
	if p.runner == nil {
		p.runner = detect.ExecRunner{}
	}
	return p, nil
}

// provider resolves the KMS provider from override, then the config, then
// auto-detection when enabled.
func (p *project) provider(ctx context.Context, override string) (string, error) {
	if name := normalize(override); name != "" {
		return name, nil
	}
	if name := normalize(p.config.Provider); name != "" {
		return name, nil
	}
	if p.config.AutoDetect {
		if name := detect.Provider(ctx, p.runner); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: set provider in .cloudencrypt.yml or pass --provider", kerrors.ErrNoProvider)
}

// kmsConfig layers overrides on the config's kms section.
func (p *project) kmsConfig(provider string, overrides map[string]string) (cloud.Config, error) {
	return cloud.Merge(provider, p.config.KMS, overrides)
}

// resolveKMS resolves the provider and builds its config in one step.
func (p *project) resolveKMS(ctx context.Context, override string, overrides map[string]string) (cloud.Config, error) {
	provider, err := p.provider(ctx, override)
	if err != nil {
		return cloud.Config{}, err
	}
	return p.kmsConfig(provider, overrides)
}

// ParseSettings parses repeated KEY=VALUE pairs given to flag, such as --set
// or --meta. Keys and values are trimmed and a later pair wins.
func ParseSettings(flag string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		idx := strings.Index(pair, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("%w: --%s expects key=value but was %q", kerrors.ErrInvalidSetting, flag, pair)
		}
		key := strings.TrimSpace(pair[:idx])
		if key == "" {
			return nil, fmt.Errorf("%w: --%s key cannot be empty", kerrors.ErrInvalidSetting, flag)
		}
		out[key] = strings.TrimSpace(pair[idx+1:])
	}
	return out, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
