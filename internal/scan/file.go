package scan

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
	"github.com/hashicorp/go-multierror"
)

// Mode names reported in FileReport.
const (
	ModeEncrypt = "encrypt"
	ModeDecrypt = "decrypt"
	ModeCheck   = "check"
)

// Options selects what ProcessFile does.
type Options struct {
	DryRun  bool
	Decrypt bool
	Check   bool
}

// Mode returns the mode name for o. Check wins over Decrypt.
func (o Options) Mode() string {
	switch {
	case o.Check:
		return ModeCheck
	case o.Decrypt:
		return ModeDecrypt
	default:
		return ModeEncrypt
	}
}

// FileReport summarises one processed file.
type FileReport struct {
	File        string   `json:"file"`
	Provider    string   `json:"provider"`
	Mode        string   `json:"mode"`
	DryRun      bool     `json:"dryRun"`
	Changed     int      `json:"changed"`
	Unencrypted int      `json:"unencrypted"`
	Keys        []string `json:"keys"`
	Written     bool     `json:"written"`
}

// ProcessFile scans path and, unless checking or dry-running, rewrites it
// when at least one value changed. Check mode never builds a capability.
// Line endings and a trailing newline are preserved.
func ProcessFile(ctx context.Context, registry *kms.Registry, path string, cfg cloud.Config, opts Options) (report FileReport, err error) {
	report = FileReport{
		File:     path,
		Provider: cfg.Provider(),
		Mode:     opts.Mode(),
		DryRun:   opts.DryRun,
		Keys:     []string{},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return report, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
		}
		return report, fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, path, err)
	}
	doc := splitDocument(string(raw))

	var encryptFn, decryptFn TransformFunc
	if !opts.Check && !opts.DryRun {
		if opts.Decrypt {
			var dec kms.Decryptor
			if dec, err = registry.NewDecryptor(ctx, cfg); err != nil {
				return report, err
			}
			defer closeInto(dec, &err)
			decryptFn = func(v string) (string, error) { return dec.Decrypt(ctx, v) }
		} else {
			var enc kms.Encryptor
			if enc, err = registry.NewEncryptor(ctx, cfg); err != nil {
				return report, err
			}
			defer closeInto(enc, &err)
			encryptFn = func(v string) (string, error) { return enc.Encrypt(ctx, v) }
		}
	}

	res, err := ProcessLines(doc.lines, opts.DryRun, opts.Decrypt, opts.Check, encryptFn, decryptFn)
	if err != nil {
		return report, fmt.Errorf("%s: %w", path, err)
	}
	report.Changed = res.ChangedCount
	report.Unencrypted = res.UnencryptedCount
	report.Keys = res.AffectedKeys

	if opts.Check || opts.DryRun || res.ChangedCount == 0 {
		return report, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return report, fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	doc.lines = res.OutputLines
	if err := os.WriteFile(path, []byte(doc.String()), info.Mode().Perm()); err != nil {
		return report, fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, path, err)
	}
	report.Written = true
	return report, nil
}

// document is file content split into lines with its line ending remembered.
type document struct {
	lines           []string
	eol             string
	trailingNewline bool
}

func splitDocument(content string) document {
	d := document{eol: "\n"}
	if strings.Contains(content, "\r\n") {
		d.eol = "\r\n"
	}
	if content == "" {
		return d
	}
	d.trailingNewline = strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\r")
	d.lines = strings.Split(content, "\n")
	if d.eol == "\r\n" {
		for i, l := range d.lines {
			d.lines[i] = strings.TrimSuffix(l, "\r")
		}
	}
	return d
}

func (d document) String() string {
	s := strings.Join(d.lines, d.eol)
	if d.trailingNewline {
		s += d.eol
	}
	return s
}

func closeInto(c any, errp *error) {
	if cerr := kms.Close(c); cerr != nil {
		*errp = multierror.Append(*errp, cerr).ErrorOrNil()
	}
}
