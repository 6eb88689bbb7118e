package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/iliyamo/intervention-api/internal/model"
)

// UserRepo looks users up by their normalized username or email.
type UserRepo struct {
	*Repository[model.User]
}

func newUserRepo(db *gorm.DB, uow *UnitOfWork) *UserRepo {
	return &UserRepo{newRepository(db, uow, hooks[model.User]{
		omit: []string{"Roles"},
		afterSave: func(tx *gorm.DB, u *model.User) error {
			if len(u.Roles) == 0 {
				return nil
			}
			return tx.Model(u).Omit("Roles.*").Association("Roles").Replace(u.Roles)
		},
	})}
}

// GetByUsername loads a user and its roles.  It returns ErrNotFound when no
// user matches.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := r.FirstOrNil(ctx, Include("Roles"), Where("normalized_username = ?", model.NormalizeName(username)))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// UsernameExists reports whether a user with username exists.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.Exists(ctx, "normalized_username = ?", model.NormalizeName(username))
}

// EmailExists reports whether a user with email exists.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.Exists(ctx, "normalized_email = ?", model.NormalizeName(email))
}

// FindByUsernames resolves a set of usernames with a single query.  The
// result is keyed by normalized username.
func (r *UserRepo) FindByUsernames(ctx context.Context, names []string) (map[string]model.User, error) {
	keys := normalizeAll(names)
	out := make(map[string]model.User, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	users, err := r.Find(ctx, Where("normalized_username IN ?", keys))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.NormalizedUsername] = u
	}
	return out, nil
}

// MissingUsernames returns, in input order and without duplicates, the
// names that match no user.  It issues a single query.
func (r *UserRepo) MissingUsernames(ctx context.Context, names []string) ([]string, error) {
	keys := normalizeAll(names)
	if len(keys) == 0 {
		return nil, nil
	}
	var found []string
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("normalized_username IN ?", keys).
		Pluck("normalized_username", &found).Error
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(found))
	for _, f := range found {
		known[f] = struct{}{}
	}
	var missing []string
	seen := map[string]struct{}{}
	for _, n := range names {
		k := model.NormalizeName(n)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := known[k]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

// Roles returns the role rows whose names are given.
func (r *UserRepo) Roles(ctx context.Context, names ...string) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&roles).Error
	return roles, err
}

func normalizeAll(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := model.NormalizeName(n)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
