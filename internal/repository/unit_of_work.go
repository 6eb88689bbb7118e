package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

const bulkBatchSize = 100

type opKind int

const (
	opAdd opKind = iota
	opUpdate
	opDelete
)

// owner is the type-erased view of a Repository[T] used when flushing.
type owner interface {
	apply(tx *gorm.DB, kind opKind, v any) (int64, error)
	lock(tx *gorm.DB, values []any) error
	upsertBatch(tx *gorm.DB, values []any) (int64, error)
	deleteBatch(tx *gorm.DB, values []any) (int64, error)
}

type pendingOp struct {
	owner owner
	kind  opKind
	value any
}

// Store owns the database session and hands out units of work.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open GORM session.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// DB exposes the underlying session for migrations and health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Begin returns a fresh unit of work with its own repositories.
func (s *Store) Begin() *UnitOfWork {
	u := &UnitOfWork{db: s.db}
	u.interventions = newInterventionRepo(s.db, u)
	u.users = newUserRepo(s.db, u)
	return u
}

// UnitOfWork collects mutations registered by its repositories and writes
// them in one transaction.  A unit of work is meant for a single request.
type UnitOfWork struct {
	db *gorm.DB

	mu      sync.Mutex
	pending []pendingOp

	interventions *InterventionRepo
	users         *UserRepo
}

// Interventions returns the intervention repository bound to u.
func (u *UnitOfWork) Interventions() *InterventionRepo { return u.interventions }

// Users returns the user repository bound to u.
func (u *UnitOfWork) Users() *UserRepo { return u.users }

func (u *UnitOfWork) register(o owner, kind opKind, v any) {
	u.mu.Lock()
	u.pending = append(u.pending, pendingOp{owner: o, kind: kind, value: v})
	u.mu.Unlock()
}

func (u *UnitOfWork) take() []pendingOp {
	u.mu.Lock()
	defer u.mu.Unlock()
	ops := u.pending
	u.pending = nil
	return ops
}

// Pending returns the number of registered, uncommitted mutations.
func (u *UnitOfWork) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pending)
}

// Clear discards every registered mutation.
func (u *UnitOfWork) Clear() { u.take() }

// Commit writes every registered mutation, in registration order, inside a
// single transaction and returns the number of affected rows.  The pending
// list is emptied whether or not the commit succeeds.
func (u *UnitOfWork) Commit(ctx context.Context) (int, error) {
	ops := u.take()
	if len(ops) == 0 {
		return 0, nil
	}
	var affected int64
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			n, err := op.owner.apply(tx, op.kind, op.value)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(affected), nil
}

type bulkGroup struct {
	owner   owner
	upserts []any
	deletes []any
}

// BulkCommit opens an explicit transaction and writes the registered
// mutations grouped per repository: adds and updates as batched upserts,
// deletes as batched IN deletes.  With holdLock the rows being updated or
// deleted are locked (SELECT ... FOR UPDATE) first.  Any failure rolls the
// whole transaction back.
func (u *UnitOfWork) BulkCommit(ctx context.Context, holdLock bool) (err error) {
	ops := u.take()
	if len(ops) == 0 {
		return nil
	}

	var groups []*bulkGroup
	index := map[owner]*bulkGroup{}
	for _, op := range ops {
		g, ok := index[op.owner]
		if !ok {
			g = &bulkGroup{owner: op.owner}
			index[op.owner] = g
			groups = append(groups, g)
		}
		if op.kind == opDelete {
			g.deletes = append(g.deletes, op.value)
		} else {
			g.upserts = append(g.upserts, op.value)
		}
	}

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("bulk commit: begin: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if holdLock {
		for _, g := range groups {
			if err = g.owner.lock(tx, append(append([]any{}, g.upserts...), g.deletes...)); err != nil {
				return fmt.Errorf("bulk commit: lock: %w", err)
			}
		}
	}
	for _, g := range groups {
		if len(g.upserts) > 0 {
			if _, err = g.owner.upsertBatch(tx, g.upserts); err != nil {
				return fmt.Errorf("bulk commit: upsert: %w", err)
			}
		}
		if len(g.deletes) > 0 {
			if _, err = g.owner.deleteBatch(tx, g.deletes); err != nil {
				return fmt.Errorf("bulk commit: delete: %w", err)
			}
		}
	}
	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("bulk commit: commit: %w", err)
	}
	return nil
}
