// Package workflows provides high-level orchestration for cloud-encrypt commands.
//
// Workflows coordinate multiple operations across packages (configs, targets,
// scan, envelope, secretstore, audit) to implement complete user-facing
// features. Each workflow handles a single command's business logic,
// independent of CLI concerns like flag parsing, spinners, and output
// formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading the project configuration
//   - Resolving the provider (flag, config, then auto-detection)
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - Scan: Encrypts, decrypts or checks sensitive properties in config files
//   - Store: Encrypts one value and optionally writes it to a properties file
//   - EncryptFile, DecryptFile, InspectFile: Envelope encryption of whole files
//   - PutSecret, GetSecret, DeleteSecret: Named secrets in a secret store
//   - Init: Writes a starter .cloudencrypt.yml or .cloudencrypt.toml
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Scan(ctx, opts)
//	if errors.Is(err, kerrors.ErrUnencryptedSecrets) {
//	    // List result.InsecureFiles and exit non-zero
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// It is passed to every provider call and to provider auto-detection.
package workflows
