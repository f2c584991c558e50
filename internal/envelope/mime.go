package envelope

import (
	"encoding/base64"
	"strings"
)

const (
	mimeLineLength = 76
	mimeSeparator  = "\r\n"
)

// encodeMIME base64-encodes b in 76 character lines separated by CRLF, with
// no separator after the last line.
func encodeMIME(b []byte) string {
	encoded := base64.StdEncoding.EncodeToString(b)
	if len(encoded) <= mimeLineLength {
		return encoded
	}

	var sb strings.Builder
	sb.Grow(len(encoded) + len(encoded)/mimeLineLength*len(mimeSeparator))
	for len(encoded) > mimeLineLength {
		sb.WriteString(encoded[:mimeLineLength])
		sb.WriteString(mimeSeparator)
		encoded = encoded[mimeLineLength:]
	}
	sb.WriteString(encoded)
	return sb.String()
}

// decodeMIME drops every CR and LF and decodes the remainder.
func decodeMIME(body string) ([]byte, error) {
	cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(body)
	return base64.StdEncoding.DecodeString(cleaned)
}
