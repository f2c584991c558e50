package workflows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/PolarWolf314/cloudencrypt/internal/audit"
	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/scan"
	"github.com/PolarWolf314/cloudencrypt/internal/targets"
)

// unknownProvider is reported when dry-run or check mode runs without a
// provider. Neither mode builds a capability.
const unknownProvider = "unknown"

// ScanOptions configures the scan workflow.
type ScanOptions struct {
	Env

	// Targets are files, directories or globs. If empty, the config's include
	// patterns are used.
	Targets []string

	// DryRun reports what would change without writing files.
	DryRun bool

	// Decrypt and Check select the mode. When both are false the config's
	// defaultMode applies.
	Decrypt bool
	Check   bool

	// KeepGoing continues with the remaining files after a failure.
	KeepGoing bool

	// Provider overrides the configured provider.
	Provider string

	// Settings override the config's kms section.
	Settings map[string]string
}

// ScanResult contains the outcome of a scan. It is the --json summary.
type ScanResult struct {
	Provider      string            `json:"provider"`
	Mode          string            `json:"mode"`
	DryRun        bool              `json:"dryRun"`
	FileCount     int               `json:"fileCount"`
	Results       []scan.FileReport `json:"results"`
	InsecureFiles []string          `json:"insecureFiles"`

	// Changed is the total number of values changed or that would change.
	Changed int `json:"changed"`

	// Written lists files rewritten on disk.
	Written []string `json:"written"`
}

// Scan processes every target file with the scan engine.
//
// Returns ErrNoFilesFound when neither targets nor include patterns match,
// ErrNoProvider when encryption or decryption has no provider, and
// ErrUnencryptedSecrets in check mode when any sensitive value is plaintext.
// With KeepGoing, per-file failures are collected and returned together
// after every file was attempted.
func Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	p, err := opts.Env.load()
	if err != nil {
		return nil, err
	}

	patterns := opts.Targets
	if len(patterns) == 0 {
		patterns = p.config.Include
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: provide a path or configure includes", kerrors.ErrNoFilesFound)
	}
	files, err := targets.Resolve(patterns, p.config.Exclude, p.dir)
	if err != nil {
		return nil, err
	}

	scanOpts := scan.Options{
		DryRun:  opts.DryRun,
		Decrypt: opts.Decrypt || p.config.Decrypt(),
		// An explicit --decrypt beats defaultMode: check.
		Check: opts.Check || (!opts.Decrypt && p.config.Check()),
	}

	cfg, err := p.scanConfig(ctx, opts, scanOpts)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		Provider:      cfg.Provider(),
		Mode:          scanOpts.Mode(),
		DryRun:        opts.DryRun,
		FileCount:     len(files),
		Results:       []scan.FileReport{},
		InsecureFiles: []string{},
		Written:       []string{},
	}

	var errs *multierror.Error
	for _, file := range files {
		report, err := scan.ProcessFile(ctx, p.registry, file, cfg, scanOpts)
		report.File = p.rel(file)
		if err != nil {
			if !opts.KeepGoing {
				p.logScan(result)
				return result, err
			}
			errs = multierror.Append(errs, err)
			continue
		}
		result.Results = append(result.Results, report)
		result.Changed += report.Changed
		if report.Unencrypted > 0 {
			result.InsecureFiles = append(result.InsecureFiles, report.File)
		}
		if report.Written {
			result.Written = append(result.Written, report.File)
		}
	}

	p.logScan(result)

	if err := errs.ErrorOrNil(); err != nil {
		return result, err
	}
	if scanOpts.Check && len(result.InsecureFiles) > 0 {
		return result, fmt.Errorf("%w in %d file(s)", kerrors.ErrUnencryptedSecrets, len(result.InsecureFiles))
	}
	return result, nil
}

// scanConfig builds the provider config. Modes that never call a provider
// fall back to a placeholder name instead of failing.
func (p *project) scanConfig(ctx context.Context, opts ScanOptions, scanOpts scan.Options) (cloud.Config, error) {
	cfg, err := p.resolveKMS(ctx, opts.Provider, opts.Settings)
	if err == nil {
		return cfg, nil
	}
	if scanOpts.Check || scanOpts.DryRun {
		return p.kmsConfig(unknownProvider, opts.Settings)
	}
	return cloud.Config{}, err
}

func (p *project) logScan(result *ScanResult) {
	entry := audit.New("scan")
	entry.Provider = result.Provider
	entry.Mode = result.Mode
	entry.DryRun = result.DryRun
	entry.Changed = result.Changed
	for _, r := range result.Results {
		entry.Files = append(entry.Files, r.File)
		entry.Keys = append(entry.Keys, r.Keys...)
	}
	audit.Log(p.dir, entry)
}

// rel returns path relative to the project directory when it lies inside it.
func (p *project) rel(path string) string {
	rel, err := filepath.Rel(p.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
