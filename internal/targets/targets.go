// Package targets turns command line targets and configured include patterns
// into the list of configuration files a scan should visit.
package targets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// Extensions visited when a target is a directory.
var Extensions = []string{".properties", ".env", ".yml", ".yaml"}

// Resolve expands patterns relative to baseDir. A directory is walked for
// files with one of Extensions, a pattern containing glob characters is
// expanded with doublestar (** included), anything else is a literal path.
// Excludes are doublestar patterns matched against the slash separated path
// relative to baseDir. Results keep first-seen order without duplicates.
//
// Empty patterns return nil. No match at all is ErrNoFilesFound.
func Resolve(patterns, excludes []string, baseDir string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	for _, ex := range excludes {
		if !doublestar.ValidatePattern(ex) {
			return nil, fmt.Errorf("%w: invalid exclude pattern %q", kerrors.ErrInvalidSetting, ex)
		}
	}

	r := resolver{baseDir: baseDir, excludes: excludes}
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := r.resolvePattern(pattern)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	return files, nil
}

type resolver struct {
	baseDir  string
	excludes []string
}

func (r resolver) abs(pattern string) string {
	if filepath.IsAbs(pattern) {
		return filepath.Clean(pattern)
	}
	return filepath.Join(r.baseDir, pattern)
}

func (r resolver) resolvePattern(pattern string) ([]string, error) {
	path := r.abs(pattern)

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return r.walk(path)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		return r.expandGlob(pattern, path)
	}

	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrIO, pattern, err)
	}
	if r.excluded(path) {
		return nil, nil
	}
	return []string{path}, nil
}

func (r resolver) expandGlob(pattern, path string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(path)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid glob pattern %q: %v", kerrors.ErrInvalidSetting, pattern, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if r.excluded(m) {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

func (r resolver) walk(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && r.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !hasExtension(path) || r.excluded(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", kerrors.ErrIO, dir, err)
	}
	return files, nil
}

// excluded matches path, relative to baseDir when possible, against every
// exclude pattern. A directory is also excluded when "<dir>/**" would match.
func (r resolver) excluded(path string) bool {
	if len(r.excludes) == 0 {
		return false
	}
	rel := filepath.ToSlash(path)
	if base, err := filepath.Abs(r.baseDir); err == nil {
		if abs, err := filepath.Abs(path); err == nil {
			if p, err := filepath.Rel(base, abs); err == nil && !strings.HasPrefix(p, "..") {
				rel = filepath.ToSlash(p)
			}
		}
	}
	for _, ex := range r.excludes {
		if doublestar.MatchUnvalidated(ex, rel) || doublestar.MatchUnvalidated(ex, rel+"/") {
			return true
		}
	}
	return false
}

func hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
