package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// envelope is what Redis stores: the value plus its absolute deadline, so
// that sliding refreshes never push an entry past it.
type envelope[V any] struct {
	Value    V         `json:"v"`
	Absolute time.Time `json:"abs"`
}

// Redis is a Cache shared by every instance using the same server and
// prefix.  Values are stored as JSON.
type Redis[V any] struct {
	rdb    *redis.Client
	prefix string
	policy Policy
	now    func() time.Time
}

// NewRedis returns a Redis-backed cache storing keys under prefix.
func NewRedis[V any](rdb *redis.Client, prefix string, p Policy) *Redis[V] {
	if p.Sliding <= 0 {
		p.Sliding = DefaultPolicy.Sliding
	}
	return &Redis[V]{rdb: rdb, prefix: prefix, policy: p, now: time.Now}
}

func (r *Redis[V]) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := r.key(key)
	bs, err := r.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var env envelope[V]
	if err := json.Unmarshal(bs, &env); err != nil {
		_ = r.rdb.Del(ctx, k).Err()
		return zero, false, nil
	}
	now := r.now()
	if !now.Before(env.Absolute) {
		_ = r.rdb.Del(ctx, k).Err()
		return zero, false, nil
	}
	if ttl := r.policy.deadline(now, env.Absolute).Sub(now); ttl > 0 {
		_ = r.rdb.Expire(ctx, k, ttl).Err()
	}
	return env.Value, true, nil
}

func (r *Redis[V]) Set(ctx context.Context, key string, v V) error {
	now := r.now()
	abs := now.Add(r.policy.Absolute)
	if r.policy.Absolute <= 0 {
		abs = now.Add(r.policy.Sliding)
	}
	bs, err := json.Marshal(envelope[V]{Value: v, Absolute: abs})
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(key), bs, r.policy.deadline(now, abs).Sub(now)).Err()
}

func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}
