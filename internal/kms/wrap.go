package kms

import "strings"

const (
	wrapPrefix = "ENC("
	wrapSuffix = ")"
)

// Wrap marks ciphertext as an inline encrypted value.
func Wrap(ciphertext string) string {
	return wrapPrefix + ciphertext + wrapSuffix
}

// Unwrap returns the text inside ENC(...). The prefix match ignores case; the
// payload is returned untouched. Values that are not wrapped come back
// trimmed, so Unwrap is idempotent.
func Unwrap(value string) string {
	v := strings.TrimSpace(value)
	if len(v) >= len(wrapPrefix)+len(wrapSuffix) &&
		strings.EqualFold(v[:len(wrapPrefix)], wrapPrefix) &&
		strings.HasSuffix(v, wrapSuffix) {
		return v[len(wrapPrefix) : len(v)-len(wrapSuffix)]
	}
	return v
}

// IsWrapped reports whether value begins with the exact ENC( prefix.
func IsWrapped(value string) bool {
	return strings.HasPrefix(value, wrapPrefix)
}
