package audit

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileName is the audit log written into the working directory.
const FileName = ".cloudencrypt-audit.jsonl"

// Entry represents a single audit log entry. It never holds plaintext or
// ciphertext.
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // Local account name.
	Operation string `json:"op"`
	Provider  string `json:"provider,omitempty"`

	// Optional fields depending on operation.
	Mode    string   `json:"mode,omitempty"`    // For scan.
	Files   []string `json:"files,omitempty"`   // For scan and file encrypt/decrypt.
	Keys    []string `json:"keys,omitempty"`    // Property names changed or flagged.
	Changed int      `json:"changed,omitempty"` // For scan.
	DryRun  bool     `json:"dry_run,omitempty"`
	Secret  string   `json:"secret,omitempty"` // Secret name for put/get/delete.
	Output  string   `json:"output,omitempty"` // For store --output and init.
}

// New returns an entry for op with the current user filled in.
func New(op string) Entry {
	entry := Entry{Operation: op}
	if u, err := user.Current(); err == nil {
		entry.User = u.Username
	}
	return entry
}

// Log appends entry to the audit log in dir, filling in the ID and timestamp
// when empty. Failures are ignored: operations never fail because audit
// logging failed.
func Log(dir string, entry Entry) {
	if dir == "" {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	// #nosec G302 G304 -- audit log should be readable by team members.
	f, err := os.OpenFile(LogPath(dir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// LogPath returns the audit log path for dir.
func LogPath(dir string) string {
	return filepath.Join(dir, FileName)
}

// ReadEntries reads all entries from the audit log in dir.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(dir string) ([]Entry, error) {
	data, err := os.ReadFile(LogPath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) []Entry {
	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries
}
