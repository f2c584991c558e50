package envelope

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

const (
	magic     = "DSCOPE-KMS-FILE-ENC-v1"
	delimiter = "----"

	// Algorithm is the only cipher construction the format defines.
	Algorithm = "AES/GCM/NoPadding"
)

// header is the parsed form of an envelope header. It is only produced by
// readHeader.
type header struct {
	provider     string
	encryptedKey string
	iv           string
	algorithm    string
}

// FileMetadata is the part of a header callers may see without decrypting.
type FileMetadata struct {
	Provider     string `json:"provider"`
	Algorithm    string `json:"algorithm"`
	EncryptedKey string `json:"encryptedKey"`
}

func (h header) metadata() FileMetadata {
	return FileMetadata{Provider: h.provider, Algorithm: h.algorithm, EncryptedKey: h.encryptedKey}
}

// writeHeader emits the header lines, each terminated by \n.
func writeHeader(w io.Writer, provider, encryptedKey string, iv []byte) error {
	lines := []string{
		magic,
		"provider:" + provider,
		"encKey:" + encryptedKey,
		"iv:" + base64.StdEncoding.EncodeToString(iv),
		"algo:" + Algorithm,
		delimiter,
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

// readHeader consumes r up to and including the delimiter line. Nothing past
// the delimiter is read from the underlying reader beyond bufio's buffer.
func readHeader(r *bufio.Reader) (header, error) {
	var lines []string
	found := false
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			line = strings.ReplaceAll(strings.TrimSuffix(line, "\n"), "\r", "")
			if line == delimiter && len(lines) > 0 {
				found = true
				break
			}
			lines = append(lines, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return header{}, fmt.Errorf("%w: reading envelope header: %v", kerrors.ErrIO, err)
		}
	}
	if !found {
		return header{}, kerrors.ErrMissingDelimiter
	}
	return parseHeaderLines(lines)
}

func parseHeaderLines(lines []string) (header, error) {
	if len(lines) == 0 || lines[0] != magic {
		return header{}, kerrors.ErrNotEnvelope
	}

	values := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		values[key] = strings.TrimSpace(line[colon+1:])
	}

	for _, field := range []string{"provider", "enckey", "iv"} {
		if _, ok := values[field]; !ok {
			return header{}, fmt.Errorf("%w: %s", kerrors.ErrMissingHeaderField, field)
		}
	}

	h := header{
		provider:     values["provider"],
		encryptedKey: values["enckey"],
		iv:           values["iv"],
		algorithm:    Algorithm,
	}
	if algo, ok := values["algo"]; ok {
		if algo != Algorithm {
			return header{}, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedAlgorithm, algo)
		}
		h.algorithm = algo
	}
	return h, nil
}
