package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis with a TTL, shared across instances.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a Redis-backed store writing keys under prefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "refresh"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(hash string) string { return s.prefix + ":" + hash }

func (s *RedisStore) Save(ctx context.Context, tokenHash string, snap Snapshot) error {
	ttl := time.Until(snap.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	bs, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(tokenHash), bs, ttl).Err()
}

// Consume uses GETDEL so that two concurrent refreshes with the same token
// cannot both succeed.
func (s *RedisStore) Consume(ctx context.Context, tokenHash string) (Snapshot, error) {
	bs, err := s.rdb.GetDel(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(bs, &snap); err != nil {
		return Snapshot{}, ErrNotFound
	}
	if !time.Now().Before(snap.ExpiresAt) {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (s *RedisStore) Revoke(ctx context.Context, tokenHash string) error {
	return s.rdb.Del(ctx, s.key(tokenHash)).Err()
}
