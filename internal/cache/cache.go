// Package cache provides the read-through cache used for intervention read
// models.  Entries expire a sliding interval after their last read and never
// outlive an absolute lifetime; writers invalidate entries explicitly.
package cache

import (
	"context"
	"time"
)

// Cache stores values of type V under string keys.  Implementations are
// safe for concurrent use.
type Cache[V any] interface {
	// Get returns the value and true on a hit.  A hit extends the sliding
	// expiry.
	Get(ctx context.Context, key string) (V, bool, error)
	// Set stores v, replacing any previous value and restarting both expiry
	// clocks.
	Set(ctx context.Context, key string, v V) error
	// Delete removes key.  Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Policy describes expiry and size limits.
type Policy struct {
	Sliding  time.Duration
	Absolute time.Duration
	Capacity int
}

// DefaultPolicy is five minutes sliding, thirty minutes absolute.
var DefaultPolicy = Policy{Sliding: 5 * time.Minute, Absolute: 30 * time.Minute, Capacity: 1000}

// deadline returns when an entry read at now must expire.
func (p Policy) deadline(now, absolute time.Time) time.Time {
	d := now.Add(p.Sliding)
	if p.Absolute > 0 && absolute.Before(d) {
		return absolute
	}
	return d
}

// Nop never stores anything.  It stands in when caching is disabled.
type Nop[V any] struct{}

func (Nop[V]) Get(context.Context, string) (V, bool, error) {
	var zero V
	return zero, false, nil
}

func (Nop[V]) Set(context.Context, string, V) error { return nil }

func (Nop[V]) Delete(context.Context, string) error { return nil }
