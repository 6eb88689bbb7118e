package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type invalidation struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
}

// Broadcast wraps a process-local cache so that every Delete is published on
// a Redis channel.  Other instances running Listen drop the same key from
// their own copy.  Messages sent by this instance are ignored on receipt.
type Broadcast[V any] struct {
	Cache[V]
	rdb     *redis.Client
	channel string
	id      string
}

// NewBroadcast returns a broadcasting wrapper around local.
func NewBroadcast[V any](local Cache[V], rdb *redis.Client, channel string) *Broadcast[V] {
	return &Broadcast[V]{Cache: local, rdb: rdb, channel: channel, id: uuid.NewString()}
}

// InstanceID identifies this process in invalidation messages.
func (b *Broadcast[V]) InstanceID() string { return b.id }

// Delete removes key locally and announces it.  A failed publish is logged;
// the local entry is gone either way.
func (b *Broadcast[V]) Delete(ctx context.Context, key string) error {
	if err := b.Cache.Delete(ctx, key); err != nil {
		return err
	}
	payload, _ := json.Marshal(invalidation{Origin: b.id, Key: key})
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		slog.Warn("cache invalidation publish failed", "key", key, "err", err)
	}
	return nil
}

// Listen applies invalidations from other instances until ctx is done.
// ready, when not nil, is closed once the subscription is active.
func (b *Broadcast[V]) Listen(ctx context.Context, ready chan<- struct{}) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if ready != nil {
		close(ready)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var inv invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				slog.Warn("cache invalidation: bad payload", "payload", msg.Payload)
				continue
			}
			if inv.Origin == b.id {
				continue
			}
			if err := b.Cache.Delete(ctx, inv.Key); err != nil {
				slog.Warn("cache invalidation: local delete failed", "key", inv.Key, "err", err)
			}
		}
	}
}

// Observed reports every Get outcome to onGet.
type Observed[V any] struct {
	Cache[V]
	onGet func(hit bool)
}

// NewObserved wraps c.
func NewObserved[V any](c Cache[V], onGet func(hit bool)) *Observed[V] {
	return &Observed[V]{Cache: c, onGet: onGet}
}

func (o *Observed[V]) Get(ctx context.Context, key string) (V, bool, error) {
	v, ok, err := o.Cache.Get(ctx, key)
	if err == nil && o.onGet != nil {
		o.onGet(ok)
	}
	return v, ok, err
}
