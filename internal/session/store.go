// Package session keeps refresh-token sessions.  Only the SHA-256 hash of a
// refresh token is used as a key; the value is the snapshot of the identity
// the token was issued for.  Tokens are single use: Consume removes the
// session atomically.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Consume for unknown, consumed or expired tokens.
var ErrNotFound = errors.New("session not found")

// Snapshot is the identity bound to a refresh token.
type Snapshot struct {
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Store persists refresh-token sessions.
type Store interface {
	// Save stores s under tokenHash until s.ExpiresAt.
	Save(ctx context.Context, tokenHash string, s Snapshot) error
	// Consume returns and deletes the session in one step.
	Consume(ctx context.Context, tokenHash string) (Snapshot, error)
	// Revoke deletes the session if present.
	Revoke(ctx context.Context, tokenHash string) error
}
