package secretstore

// Record is a secret value with its metadata. Both are copied when a Record
// is built and again when they are read.
type Record struct {
	data     []byte
	metadata map[string]string
}

// NewRecord copies data and metadata into a Record. nil inputs become empty.
func NewRecord(data []byte, metadata map[string]string) Record {
	return Record{data: cloneBytes(data), metadata: cloneMap(metadata)}
}

// Data returns a copy of the secret bytes.
func (r Record) Data() []byte {
	return cloneBytes(r.data)
}

// Metadata returns a copy of the metadata.
func (r Record) Metadata() map[string]string {
	return cloneMap(r.metadata)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
