package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process.  It is used when Redis is not
// reachable; sessions are then lost on restart and not shared.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Snapshot
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Snapshot), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, tokenHash string, s Snapshot) error {
	m.mu.Lock()
	m.data[tokenHash] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, tokenHash string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[tokenHash]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	delete(m.data, tokenHash)
	if !m.now().Before(s.ExpiresAt) {
		return Snapshot{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Revoke(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	delete(m.data, tokenHash)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// RunGC drops expired sessions every interval until ctx is done.
func (m *MemoryStore) RunGC(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *MemoryStore) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, s := range m.data {
		if !now.Before(s.ExpiresAt) {
			delete(m.data, k)
		}
	}
}
