package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/iliyamo/intervention-api/internal/model"
)

// InterventionRepo reads and registers work orders.  Client and technician
// associations are never upserted through it; the technician join rows are
// replaced after each save and cleared before a delete.
type InterventionRepo struct {
	*Repository[model.Intervention]
}

func newInterventionRepo(db *gorm.DB, uow *UnitOfWork) *InterventionRepo {
	return &InterventionRepo{newRepository(db, uow, hooks[model.Intervention]{
		omit: []string{"Client", "Technicians"},
		afterSave: func(tx *gorm.DB, e *model.Intervention) error {
			if len(e.Technicians) == 0 {
				return tx.Model(e).Association("Technicians").Clear()
			}
			return tx.Model(e).Omit("Technicians.*").Association("Technicians").Replace(e.Technicians)
		},
		beforeDelete: func(tx *gorm.DB, e *model.Intervention) error {
			err := tx.Model(&model.Intervention{}).Where("id = ?", e.ID).Update("client_id", nil).Error
			if err != nil {
				return err
			}
			e.ClientID, e.Client = nil, nil
			if err := tx.Model(e).Association("Technicians").Clear(); err != nil {
				return err
			}
			e.Technicians = nil
			return nil
		},
	})}
}

// GetWithClientAndTechnicians loads one intervention with both associations,
// or nil when the id is unknown.
func (r *InterventionRepo) GetWithClientAndTechnicians(ctx context.Context, id uint64) (*model.Intervention, error) {
	return r.GetByID(ctx, id, "Client", "Technicians")
}

// All returns every intervention with client and technicians, oldest first.
func (r *InterventionRepo) All(ctx context.Context) ([]model.Intervention, error) {
	return r.Find(ctx, Include("Client"), Include("Technicians"), OrderBy("id"))
}

// AssignedTo returns the interventions where username is among the
// technicians, compared case-insensitively.
func (r *InterventionRepo) AssignedTo(ctx context.Context, username string) ([]model.Intervention, error) {
	return r.Find(ctx,
		Where(`EXISTS (SELECT 1 FROM intervention_technicians it
			JOIN users u ON u.id = it.user_id
			WHERE it.intervention_id = interventions.id AND u.normalized_username = ?)`, model.NormalizeName(username)),
		Include("Client"), Include("Technicians"), OrderBy("id"))
}

// NameTaken reports whether another intervention already uses name.  A zero
// exceptID checks every row.
func (r *InterventionRepo) NameTaken(ctx context.Context, name string, exceptID uint64) (bool, error) {
	if exceptID == 0 {
		return r.Exists(ctx, "name = ?", name)
	}
	return r.Exists(ctx, "name = ? AND id <> ?", name, exceptID)
}
