// Package errors provides typed error values for cloudencrypt.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Every specific error belongs to exactly one kind:
//
//   - ErrConfiguration: unsupported provider, missing required setting,
//     provider mismatch between a file header and the requested config
//   - ErrFormat: envelope header or body is malformed, secret payload is not
//     valid JSON
//   - ErrIntegrity: the AEAD tag did not verify
//   - ErrProvider: a KMS or secret store backend call failed
//   - ErrNotFound: a secret name is absent from its store
//   - ErrIO: a path is missing, not a regular file, or not writable
//
// Specific errors match both themselves and their kind:
//
//	_, err := svc.DecryptFile(ctx, in, out, cfg)
//	errors.Is(err, kerrors.ErrProviderMismatch) // true
//	errors.Is(err, kerrors.ErrConfiguration)    // also true
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("reading header of %s: %w", path, errors.ErrNotEnvelope)
//
// Backend failures are wrapped with Provider so the original SDK error stays
// reachable through errors.As:
//
//	return errors.Provider("aws", "encrypt", err)
package errors
