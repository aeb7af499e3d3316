package cache

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// RetentionStore holds entries nobody subscribes to for the grace window.
// Values put in with Retain must come back from Peek and Revive unchanged
// until the window passes, after which they are gone.
type RetentionStore interface {
	Retain(key string, value any)
	Peek(key string) (any, bool)
	// Revive removes and returns the value.
	Revive(key string) (any, bool)
	Drop(key string)
	Keys() []string
	Close() error
}

// MemoryRetention is a map-backed RetentionStore driven by a juju clock, so
// tests can advance time instead of sleeping.
type MemoryRetention struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock clock.Clock
	items map[string]retained
}

type retained struct {
	value   any
	expires time.Time
}

// NewMemoryRetention keeps values for ttl as measured by clk. A nil clock
// means wall time.
func NewMemoryRetention(ttl time.Duration, clk clock.Clock) *MemoryRetention {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryRetention{
		ttl:   ttl,
		clock: clk,
		items: make(map[string]retained),
	}
}

func (m *MemoryRetention) Retain(key string, value any) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.items[key] = retained{value: value, expires: m.clock.Now().Add(m.ttl)}
	m.mu.Unlock()
}

func (m *MemoryRetention) Peek(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(key)
}

func (m *MemoryRetention) Revive(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.getLocked(key)
	delete(m.items, key)
	return v, ok
}

func (m *MemoryRetention) Drop(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Keys lists unexpired keys, pruning the expired ones on the way.
func (m *MemoryRetention) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	keys := make([]string, 0, len(m.items))
	for k, it := range m.items {
		if !now.Before(it.expires) {
			delete(m.items, k)
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func (m *MemoryRetention) Close() error {
	m.mu.Lock()
	clear(m.items)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRetention) getLocked(key string) (any, bool) {
	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !m.clock.Now().Before(it.expires) {
		delete(m.items, key)
		return nil, false
	}
	return it.value, true
}
