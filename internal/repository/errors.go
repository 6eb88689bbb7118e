// Package repository defines the persistence layer: a generic repository per
// entity type, the intervention and user repositories built on it, and the
// unit of work that commits their registered mutations.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by lookups that require a row to exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate entry")

// isDuplicate recognises unique violations from MySQL (1062) and SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}
