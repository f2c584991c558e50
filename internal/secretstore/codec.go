package secretstore

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// payload is the JSON document stored by every remote backend. encoding/json
// writes map keys in sorted order, so the output is deterministic.
type payload struct {
	Data     string            `json:"data"`
	Metadata map[string]string `json:"metadata"`
}

// Encode serializes data and metadata. nil metadata is written as {}.
func Encode(data []byte, metadata map[string]string) ([]byte, error) {
	p := payload{
		Data:     base64.StdEncoding.EncodeToString(data),
		Metadata: cloneMap(metadata),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encoding secret payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a payload written by Encode. It is lenient: a missing or
// undecodable data field yields empty data and a missing metadata field
// yields an empty map. Input that is not a JSON object is ErrMalformedPayload.
func Decode(raw []byte) (Record, error) {
	var doc struct {
		Data     json.RawMessage   `json:"data"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Record{}, fmt.Errorf("%w: %v", kerrors.ErrMalformedPayload, err)
	}
	return NewRecord(decodeData(doc.Data), doc.Metadata), nil
}

func decodeData(raw json.RawMessage) []byte {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return data
}
