package session

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// Store is the durable key-value storage a session is persisted in.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// MemoryStore keeps values in process memory. It does not survive a
// restart and is meant for tests and short-lived tools.
type MemoryStore struct {
	values *xsync.MapOf[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: xsync.NewMapOf[string, []byte]()}
}

func (m *MemoryStore) Get(_ context.Context, name string) ([]byte, bool, error) {
	v, ok := m.values.Load(name)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, name string, value []byte) error {
	m.values.Store(name, append([]byte(nil), value...))
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.values.Delete(name)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
