package errors

import (
	"errors"
	"fmt"
)

// Kinds. Every error returned by cloudencrypt matches one of these.
var (
	// ErrConfiguration indicates an invalid or incomplete provider configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrFormat indicates malformed input such as a corrupt envelope header.
	ErrFormat = errors.New("format error")

	// ErrIntegrity indicates ciphertext failed authentication.
	ErrIntegrity = errors.New("integrity error")

	// ErrProvider indicates a backend call failed.
	ErrProvider = errors.New("provider error")

	// ErrNotFound indicates a named item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIO indicates a filesystem problem.
	ErrIO = errors.New("i/o error")
)

// kindError is a sentinel that also matches its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

func newKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Configuration errors are raised before any backend is contacted.
var (
	// ErrUnsupportedProvider indicates no backend is registered under the name.
	ErrUnsupportedProvider = newKind(ErrConfiguration, "unsupported provider")

	// ErrMissingSetting indicates a required provider setting is absent or blank.
	ErrMissingSetting = newKind(ErrConfiguration, "missing required setting")

	// ErrInvalidSetting indicates a provider setting has an unusable value.
	ErrInvalidSetting = newKind(ErrConfiguration, "invalid setting")

	// ErrProviderMismatch indicates a file was sealed for a different provider.
	ErrProviderMismatch = newKind(ErrConfiguration, "provider mismatch")

	// ErrConfigExists indicates a starter config would overwrite an existing file.
	ErrConfigExists = newKind(ErrConfiguration, "config file already exists")

	// ErrNoProvider indicates no provider was configured or detected.
	ErrNoProvider = newKind(ErrConfiguration, "unable to determine provider")
)

// Format errors describe data that cannot be parsed.
var (
	// ErrNotEnvelope indicates the magic line is missing.
	ErrNotEnvelope = newKind(ErrFormat, "not an envelope payload")

	// ErrMissingDelimiter indicates the header delimiter line is missing.
	ErrMissingDelimiter = newKind(ErrFormat, "envelope header delimiter not found")

	// ErrMissingHeaderField indicates a required header field is absent.
	ErrMissingHeaderField = newKind(ErrFormat, "envelope header missing required field")

	// ErrUnsupportedAlgorithm indicates the header names an unknown cipher.
	ErrUnsupportedAlgorithm = newKind(ErrFormat, "unsupported envelope algorithm")

	// ErrMalformedBody indicates the ciphertext body or a header value is not valid base64.
	ErrMalformedBody = newKind(ErrFormat, "malformed envelope body")

	// ErrMalformedPayload indicates a secret payload is not valid JSON.
	ErrMalformedPayload = newKind(ErrFormat, "malformed secret payload")
)

// Integrity errors.
var (
	// ErrAuthenticationFailed indicates the GCM tag did not verify.
	ErrAuthenticationFailed = newKind(ErrIntegrity, "message authentication failed")
)

// Lookup errors.
var (
	// ErrSecretNotFound indicates the secret name is absent from the store.
	ErrSecretNotFound = newKind(ErrNotFound, "secret not found")

	// ErrNoFilesFound indicates no files matched the targets.
	ErrNoFilesFound = newKind(ErrNotFound, "no matching files found")
)

// File errors.
var (
	// ErrFileNotFound indicates the path does not exist.
	ErrFileNotFound = newKind(ErrIO, "file does not exist")

	// ErrNotRegularFile indicates the path is a directory or device.
	ErrNotRegularFile = newKind(ErrIO, "file is not a regular file")
)

// ErrUnencryptedSecrets is returned by check mode when plaintext secrets were found.
var ErrUnencryptedSecrets = errors.New("unencrypted secrets found")

// ProviderError wraps a failure returned by a backend SDK.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Provider wraps err as a ProviderError. A nil err returns nil.
func Provider(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// MissingSetting reports a required setting by name.
func MissingSetting(provider, key string) error {
	return fmt.Errorf("%w: %s requires %q", ErrMissingSetting, provider, key)
}
