package scan

import "strings"

// UpsertProperty replaces the first line whose trimmed form starts with
// key= and otherwise appends key=value. lines is not modified.
func UpsertProperty(lines []string, key, value string) []string {
	out := make([]string, len(lines), len(lines)+1)
	copy(out, lines)

	prefix := key + "="
	for i, line := range out {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			out[i] = prefix + value
			return out
		}
	}
	return append(out, prefix+value)
}
