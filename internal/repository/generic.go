package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption shapes a read query.
type QueryOption func(*gorm.DB) *gorm.DB

// Where filters rows; query and args follow gorm's Where.
func Where(query any, args ...any) QueryOption {
	return func(db *gorm.DB) *gorm.DB { return db.Where(query, args...) }
}

// Include eager-loads an association.
func Include(association string) QueryOption {
	return func(db *gorm.DB) *gorm.DB { return db.Preload(association) }
}

// OrderBy sorts rows.
func OrderBy(expr string) QueryOption {
	return func(db *gorm.DB) *gorm.DB { return db.Order(expr) }
}

// hooks lets a specialised repository keep associations in step with the
// row inside the same transaction.
type hooks[T any] struct {
	omit         []string
	afterSave    func(tx *gorm.DB, e *T) error
	beforeDelete func(tx *gorm.DB, e *T) error
}

// Repository is a thin query wrapper over one entity type.  Reads run
// directly against the database; Add, Update and Delete only register the
// mutation on the unit of work, nothing is written until it is committed.
type Repository[T any] struct {
	db    *gorm.DB
	uow   *UnitOfWork
	hooks hooks[T]
}

func newRepository[T any](db *gorm.DB, uow *UnitOfWork, h hooks[T]) *Repository[T] {
	return &Repository[T]{db: db, uow: uow, hooks: h}
}

func (r *Repository[T]) query(ctx context.Context, opts []QueryOption) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(T))
	for _, o := range opts {
		q = o(q)
	}
	return q
}

// Find returns every row matching opts.
func (r *Repository[T]) Find(ctx context.Context, opts ...QueryOption) ([]T, error) {
	var out []T
	if err := r.query(ctx, opts).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FirstOrNil returns the first matching row, or nil when there is none.
func (r *Repository[T]) FirstOrNil(ctx context.Context, opts ...QueryOption) (*T, error) {
	var e T
	err := r.query(ctx, opts).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID loads a row by primary key with the given associations, or nil.
func (r *Repository[T]) GetByID(ctx context.Context, id any, includes ...string) (*T, error) {
	opts := make([]QueryOption, 0, len(includes)+1)
	for _, inc := range includes {
		opts = append(opts, Include(inc))
	}
	opts = append(opts, Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}))
	return r.FirstOrNil(ctx, opts...)
}

// Exists reports whether at least one row matches.
func (r *Repository[T]) Exists(ctx context.Context, query any, args ...any) (bool, error) {
	var hit []int
	err := r.db.WithContext(ctx).Model(new(T)).Select("1").Where(query, args...).Limit(1).Scan(&hit).Error
	if err != nil {
		return false, err
	}
	return len(hit) > 0, nil
}

// Count returns the number of matching rows.
func (r *Repository[T]) Count(ctx context.Context, query any, args ...any) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(query, args...).Count(&n).Error
	return n, err
}

// Add registers new rows.
func (r *Repository[T]) Add(entities ...*T) {
	for _, e := range entities {
		r.uow.register(r, opAdd, e)
	}
}

// Update registers modified rows.
func (r *Repository[T]) Update(entities ...*T) {
	for _, e := range entities {
		r.uow.register(r, opUpdate, e)
	}
}

// Delete registers rows for removal.
func (r *Repository[T]) Delete(entities ...*T) {
	for _, e := range entities {
		r.uow.register(r, opDelete, e)
	}
}

// apply writes a single registered mutation.
func (r *Repository[T]) apply(tx *gorm.DB, kind opKind, v any) (int64, error) {
	e := v.(*T)
	var res *gorm.DB
	switch kind {
	case opAdd:
		res = tx.Omit(r.hooks.omit...).Create(e)
	case opUpdate:
		res = tx.Omit(r.hooks.omit...).Save(e)
	case opDelete:
		if r.hooks.beforeDelete != nil {
			if err := r.hooks.beforeDelete(tx, e); err != nil {
				return 0, err
			}
		}
		res = tx.Delete(e)
		return res.RowsAffected, res.Error
	}
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return 0, fmt.Errorf("%w: %v", ErrDuplicate, res.Error)
		}
		return 0, res.Error
	}
	if r.hooks.afterSave != nil {
		if err := r.hooks.afterSave(tx, e); err != nil {
			return 0, err
		}
	}
	return res.RowsAffected, nil
}

// lock takes row locks on the persisted rows among values.
func (r *Repository[T]) lock(tx *gorm.DB, values []any) error {
	ids, err := r.primaryKeys(tx, values)
	if err != nil || len(ids) == 0 {
		return err
	}
	var locked []T
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(clause.IN{Column: clause.PrimaryColumn, Values: ids}).
		Find(&locked).Error
}

// upsertBatch inserts or updates values in batches.
func (r *Repository[T]) upsertBatch(tx *gorm.DB, values []any) (int64, error) {
	batch := make([]*T, 0, len(values))
	for _, v := range values {
		batch = append(batch, v.(*T))
	}
	res := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit(r.hooks.omit...).CreateInBatches(batch, bulkBatchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	if r.hooks.afterSave != nil {
		for _, e := range batch {
			if err := r.hooks.afterSave(tx, e); err != nil {
				return 0, err
			}
		}
	}
	return res.RowsAffected, nil
}

// deleteBatch removes values with a single IN statement.
func (r *Repository[T]) deleteBatch(tx *gorm.DB, values []any) (int64, error) {
	if r.hooks.beforeDelete != nil {
		for _, v := range values {
			if err := r.hooks.beforeDelete(tx, v.(*T)); err != nil {
				return 0, err
			}
		}
	}
	ids, err := r.primaryKeys(tx, values)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	res := tx.Where(clause.IN{Column: clause.PrimaryColumn, Values: ids}).Delete(new(T))
	return res.RowsAffected, res.Error
}

func (r *Repository[T]) primaryKeys(tx *gorm.DB, values []any) ([]any, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, err
	}
	pf := stmt.Schema.PrioritizedPrimaryField
	if pf == nil {
		return nil, fmt.Errorf("%s has no primary key", stmt.Schema.Name)
	}
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ids := make([]any, 0, len(values))
	for _, v := range values {
		if id, zero := pf.ValueOf(ctx, reflect.ValueOf(v).Elem()); !zero {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
