// Package audit records what cloud-encrypt did to a project.
//
// Entries are appended as JSON Lines to .cloudencrypt-audit.jsonl in the
// working directory. Each entry carries a random UUID, a UTC timestamp with
// microseconds, the local user name, the operation and operation-specific
// details such as file names or property keys. Secret values never appear.
//
//	entry := audit.New("scan")
//	entry.Files = files
//	audit.Log(dir, entry)
//
// Audit logging is best-effort. A log that cannot be written is skipped and
// the operation continues. ReadEntries skips malformed lines left by partial
// writes.
package audit
