package secretstore

import (
	"context"
	"sync"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
)

// MemoryStore keeps secrets in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]Record)}
}

func openMemory(context.Context, cloud.Config) (Store, error) {
	return NewMemoryStore(), nil
}

func (m *MemoryStore) Put(_ context.Context, name string, data []byte, metadata map[string]string) error {
	rec := NewRecord(data, metadata)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[name] = rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.secrets[name]
	if !ok {
		return Record{}, notFound(name)
	}
	return rec, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, name)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
