// Package scan finds sensitive key=value properties in configuration text
// and encrypts, decrypts or reports them.
//
// ProcessLines is pure. ProcessFile wraps it with file I/O and a KMS
// capability from a registry.
package scan

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

// TransformFunc converts one property value. It may be nil, in which case
// matching lines are counted but left as they are.
type TransformFunc func(value string) (string, error)

// Result is the outcome of ProcessLines.
type Result struct {
	OutputLines      []string
	ChangedCount     int
	UnencryptedCount int
	// AffectedKeys lists keys in the order they were seen. A key repeated in
	// the input is repeated here.
	AffectedKeys []string
}

// sensitiveMarkers are matched as substrings of the lower-cased key, so
// "keyboard_layout" counts as sensitive too.
var sensitiveMarkers = []string{"password", "secret", "token", "key"}

// IsSensitive reports whether key looks like it holds a secret.
func IsSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, m := range sensitiveMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ProcessLines runs one pass over lines.
//
// In check mode sensitive values not starting with ENC( are counted in
// UnencryptedCount and nothing is transformed. Otherwise decryptMode selects
// between decrypting ENC(...) values and encrypting plaintext sensitive
// values; both count into ChangedCount. When dryRun is set, or the needed
// function is nil, OutputLines equals lines.
//
// The first transform error stops processing and is returned with the key
// that caused it.
func ProcessLines(lines []string, dryRun, decryptMode, checkMode bool, encryptFn, decryptFn TransformFunc) (Result, error) {
	res := Result{
		OutputLines:  make([]string, 0, len(lines)),
		AffectedKeys: []string{},
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			res.OutputLines = append(res.OutputLines, line)
			continue
		}

		rawKey, rawValue, ok := strings.Cut(line, "=")
		if !ok {
			res.OutputLines = append(res.OutputLines, line)
			continue
		}
		key := strings.TrimSpace(rawKey)
		value := strings.TrimSpace(rawValue)
		sensitive := IsSensitive(key)
		wrapped := kms.IsWrapped(value)

		switch {
		case checkMode:
			if sensitive && !wrapped {
				res.UnencryptedCount++
				res.AffectedKeys = append(res.AffectedKeys, key)
			}
			res.OutputLines = append(res.OutputLines, line)

		case decryptMode && wrapped:
			res.ChangedCount++
			res.AffectedKeys = append(res.AffectedKeys, key)
			if dryRun || decryptFn == nil {
				res.OutputLines = append(res.OutputLines, line)
				continue
			}
			plain, err := decryptFn(kms.Unwrap(value))
			if err != nil {
				return Result{}, fmt.Errorf("decrypting %s: %w", key, err)
			}
			res.OutputLines = append(res.OutputLines, key+"="+plain)

		case !decryptMode && sensitive && !wrapped:
			res.ChangedCount++
			res.AffectedKeys = append(res.AffectedKeys, key)
			if dryRun || encryptFn == nil {
				res.OutputLines = append(res.OutputLines, line)
				continue
			}
			sealed, err := encryptFn(value)
			if err != nil {
				return Result{}, fmt.Errorf("encrypting %s: %w", key, err)
			}
			res.OutputLines = append(res.OutputLines, key+"="+kms.Wrap(sealed))

		default:
			res.OutputLines = append(res.OutputLines, line)
		}
	}
	return res, nil
}
