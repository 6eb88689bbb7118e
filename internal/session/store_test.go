package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func snapshot(ttl time.Duration) Snapshot {
	now := time.Now().UTC()
	return Snapshot{Username: "alice", Roles: []string{"Admin"}, IssuedAt: now, ExpiresAt: now.Add(ttl)}
}

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Store{
		"redis":  NewRedisStore(rdb, "refresh"),
		"memory": NewMemoryStore(),
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, "h1", snapshot(time.Hour)); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.Consume(ctx, "h1")
			if err != nil {
				t.Fatalf("consume: %v", err)
			}
			if got.Username != "alice" || len(got.Roles) != 1 || got.Roles[0] != "Admin" {
				t.Fatalf("unexpected snapshot %+v", got)
			}
			if _, err := s.Consume(ctx, "h1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second consume: expected ErrNotFound, got %v", err)
			}
			if _, err := s.Consume(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("unknown: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRevoke(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = s.Save(ctx, "h2", snapshot(time.Hour))
			if err := s.Revoke(ctx, "h2"); err != nil {
				t.Fatalf("revoke: %v", err)
			}
			if _, err := s.Consume(ctx, "h2"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestConcurrentConsumeHasOneWinner(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = s.Save(ctx, "h3", snapshot(time.Hour))
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.Consume(ctx, "h3"); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			if wins.Load() != 1 {
				t.Fatalf("expected exactly one successful consume, got %d", wins.Load())
			}
		})
	}
}

func TestRedisStoreUsesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s := NewRedisStore(rdb, "refresh")
	ctx := context.Background()

	_ = s.Save(ctx, "h4", snapshot(time.Hour))
	if ttl := mr.TTL("refresh:h4"); ttl <= 59*time.Minute || ttl > time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Consume(ctx, "h4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	m.now = func() time.Time { return base }
	_ = m.Save(ctx, "a", Snapshot{Username: "a", ExpiresAt: base.Add(time.Minute)})
	_ = m.Save(ctx, "b", Snapshot{Username: "b", ExpiresAt: base.Add(time.Hour)})

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	m.sweep()
	if m.Len() != 1 {
		t.Fatalf("expected 1 session after sweep, got %d", m.Len())
	}
	if _, err := m.Consume(ctx, "b"); err != nil {
		t.Fatalf("b should still be valid: %v", err)
	}
}
