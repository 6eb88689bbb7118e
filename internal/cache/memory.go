package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry[V any] struct {
	value    V
	expires  time.Time // sliding deadline, capped by absolute
	absolute time.Time
	accessed time.Time
}

// Memory is an in-process Cache.  When full, the least recently read entry
// is evicted.
type Memory[V any] struct {
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	data      map[string]*memEntry[V]
	evictions int64
}

// NewMemory returns an empty in-process cache.
func NewMemory[V any](p Policy) *Memory[V] {
	if p.Capacity < 1 {
		p.Capacity = DefaultPolicy.Capacity
	}
	if p.Sliding <= 0 {
		p.Sliding = DefaultPolicy.Sliding
	}
	return &Memory[V]{policy: p, now: time.Now, data: make(map[string]*memEntry[V])}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return zero, false, nil
	}
	now := m.now()
	if !now.Before(e.expires) {
		delete(m.data, key)
		return zero, false, nil
	}
	e.accessed = now
	e.expires = m.policy.deadline(now, e.absolute)
	return e.value, true, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, v V) error {
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.data[key]; !exists {
		m.evictIfNeeded()
	}
	abs := now.Add(m.policy.Absolute)
	if m.policy.Absolute <= 0 {
		abs = now.Add(m.policy.Sliding)
	}
	m.data[key] = &memEntry[V]{
		value:    v,
		expires:  m.policy.deadline(now, abs),
		absolute: abs,
		accessed: now,
	}
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Evictions returns how many entries were dropped for capacity.
func (m *Memory[V]) Evictions() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions
}

// evictIfNeeded drops expired entries, then the least recently read one
// while the cache is full.  Callers hold mu.
func (m *Memory[V]) evictIfNeeded() {
	if len(m.data) < m.policy.Capacity {
		return
	}
	m.sweepLocked(m.now())
	for len(m.data) >= m.policy.Capacity {
		var oldestKey string
		var oldest time.Time
		for k, e := range m.data {
			if oldestKey == "" || e.accessed.Before(oldest) {
				oldestKey, oldest = k, e.accessed
			}
		}
		delete(m.data, oldestKey)
		m.evictions++
	}
}

func (m *Memory[V]) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range m.data {
		if !now.Before(e.expires) {
			delete(m.data, k)
			n++
		}
	}
	return n
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory[V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

// RunGC sweeps every interval until ctx is done.
func (m *Memory[V]) RunGC(ctx context.Context, interval time.Duration) error {
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
			m.Sweep()
		}
	}
}
