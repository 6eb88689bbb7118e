// Package service holds the business managers: interventions and identity.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/iliyamo/intervention-api/internal/apperr"
	"github.com/iliyamo/intervention-api/internal/cache"
	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/mapper"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/obs"
	"github.com/iliyamo/intervention-api/internal/queue"
	"github.com/iliyamo/intervention-api/internal/repository"
	"github.com/iliyamo/intervention-api/internal/validation"
)

// InterventionManager orchestrates validation, persistence, the read cache
// and event publishing for work orders.
type InterventionManager struct {
	store     *repository.Store
	cache     cache.Cache[dto.GetInterventionModel]
	publisher queue.Publisher
	now       func() time.Time

	// gens counts invalidations per id stripe; see GetByID.
	gens [generationStripes]atomic.Uint64
	// afterLoad runs between the database read and the cache write of GetByID.
	afterLoad func(id uint64)
}

const generationStripes = 256

// NewInterventionManager wires a manager.  A nil publisher disables events.
func NewInterventionManager(store *repository.Store, c cache.Cache[dto.GetInterventionModel], p queue.Publisher) *InterventionManager {
	if p == nil {
		p = queue.NopPublisher{}
	}
	return &InterventionManager{store: store, cache: c, publisher: p, now: time.Now}
}

// CacheKey returns the read cache key of intervention id.
func CacheKey(id uint64) string { return fmt.Sprintf("intervention_%d", id) }

func (m *InterventionManager) validator(uow *repository.UnitOfWork) *validation.InterventionValidator {
	return validation.NewInterventionValidator(uow.Interventions(), uow.Users(), mapper.ToBusinessErrors)
}

// Search lists every intervention for admins and, for anyone else, those
// where username is among the technicians.
func (m *InterventionManager) Search(ctx context.Context, isAdmin bool, username string) ([]dto.InterventionModel, error) {
	repo := m.store.Begin().Interventions()
	var (
		rows []model.Intervention
		err  error
	)
	if isAdmin {
		rows, err = repo.All(ctx)
	} else {
		rows, err = repo.AssignedTo(ctx, username)
	}
	if err != nil {
		return nil, fmt.Errorf("search interventions: %w", err)
	}
	return mapper.ToInterventionModels(rows), nil
}

// GetByID serves from the read cache and falls back to the database,
// caching what it loads.
//
// A snapshot is only cached when no Update or Delete of the same id was
// invalidated in this process while it was being loaded.  The generation is
// checked again after the write so that an invalidation landing between the
// check and the Set still removes the stale entry.  Other instances are
// reached through the cache's own invalidation (Broadcast) and keep a small
// window until its message arrives.
func (m *InterventionManager) GetByID(ctx context.Context, id uint64) (dto.GetInterventionModel, error) {
	key := CacheKey(id)
	if v, ok, err := m.cache.Get(ctx, key); err != nil {
		slog.Warn("intervention cache read failed", "key", key, "err", err)
	} else if ok {
		return v, nil
	}

	gen := m.generation(id)
	e, err := m.store.Begin().Interventions().GetWithClientAndTechnicians(ctx, id)
	if err != nil {
		return dto.GetInterventionModel{}, fmt.Errorf("load intervention %d: %w", id, err)
	}
	if e == nil {
		return dto.GetInterventionModel{}, apperr.NotFound("GetInterventionModel", id)
	}
	out := mapper.ToGetInterventionModel(e)
	if m.afterLoad != nil {
		m.afterLoad(id)
	}
	if m.generation(id) != gen {
		return out, nil
	}
	if err := m.cache.Set(ctx, key, out); err != nil {
		slog.Warn("intervention cache write failed", "key", key, "err", err)
		return out, nil
	}
	if m.generation(id) != gen {
		m.invalidate(ctx, id)
	}
	return out, nil
}

// Create validates m, persists a new intervention and returns its id.
func (m *InterventionManager) Create(ctx context.Context, in *dto.InterventionModel, username string) (uint64, error) {
	uow := m.store.Begin()
	if err := m.validator(uow).Validate(ctx, in, validation.Context{Type: validation.Create}); err != nil {
		return 0, err
	}

	e := &model.Intervention{}
	mapper.ApplyInterventionModel(e, in)
	if err := m.resolveUsers(ctx, uow, e, in); err != nil {
		return 0, err
	}
	e.SetCreationData(username, m.now())

	uow.Interventions().Add(e)
	if _, err := uow.Commit(ctx); err != nil {
		return 0, fmt.Errorf("create intervention: %w", err)
	}
	m.publish(ctx, queue.EventCreated, e, username)
	return e.ID, nil
}

// Update validates m against the other interventions, overwrites the stored
// one and drops it from the read cache.
func (m *InterventionManager) Update(ctx context.Context, id uint64, in *dto.InterventionModel, username string) (uint64, error) {
	uow := m.store.Begin()
	if err := m.validator(uow).Validate(ctx, in, validation.Context{Type: validation.Update, ID: id}); err != nil {
		return 0, err
	}

	e, err := uow.Interventions().GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load intervention %d: %w", id, err)
	}
	if e == nil {
		return 0, apperr.NotFound("Intervention", id)
	}

	mapper.ApplyInterventionModel(e, in)
	if err := m.resolveUsers(ctx, uow, e, in); err != nil {
		return 0, err
	}
	e.SetUpdateData(username, m.now())

	uow.Interventions().Update(e)
	if err := uow.BulkCommit(ctx, true); err != nil {
		return 0, fmt.Errorf("update intervention %d: %w", id, err)
	}
	m.invalidate(ctx, id)
	m.publish(ctx, queue.EventUpdated, e, username)
	return e.ID, nil
}

// Delete removes an intervention.  The client reference and technician
// assignments are cleared in the same transaction; users are never deleted.
func (m *InterventionManager) Delete(ctx context.Context, id uint64, username string) error {
	uow := m.store.Begin()
	e, err := uow.Interventions().GetWithClientAndTechnicians(ctx, id)
	if err != nil {
		return fmt.Errorf("load intervention %d: %w", id, err)
	}
	if e == nil {
		return apperr.NotFound("Intervention", id)
	}
	ev := eventFor(queue.EventDeleted, e, username)

	uow.Interventions().Delete(e)
	if _, err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("delete intervention %d: %w", id, err)
	}
	m.invalidate(ctx, id)
	m.send(ctx, ev)
	return nil
}

// resolveUsers loads the client and technicians named by in with a single
// query and attaches them to e.
func (m *InterventionManager) resolveUsers(ctx context.Context, uow *repository.UnitOfWork, e *model.Intervention, in *dto.InterventionModel) error {
	names := append([]string{in.ClientName}, in.TechniciansNames...)
	users, err := uow.Users().FindByUsernames(ctx, names)
	if err != nil {
		return fmt.Errorf("resolve users: %w", err)
	}

	client, ok := users[model.NormalizeName(in.ClientName)]
	if !ok {
		// Validated a moment ago; the user disappeared in between.
		return apperr.NotFound("User", in.ClientName)
	}
	e.Client, e.ClientID = &client, &client.ID

	seen := map[uint64]bool{}
	e.Technicians = e.Technicians[:0]
	for _, n := range in.TechniciansNames {
		u, ok := users[model.NormalizeName(n)]
		if !ok {
			return apperr.NotFound("User", n)
		}
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		e.Technicians = append(e.Technicians, u)
	}
	return nil
}

func (m *InterventionManager) generation(id uint64) uint64 {
	return m.gens[id%generationStripes].Load()
}

// invalidate bumps the generation before deleting so that a concurrent
// GetByID either skips its Set or sees the bump after it.
func (m *InterventionManager) invalidate(ctx context.Context, id uint64) {
	m.gens[id%generationStripes].Add(1)
	if err := m.cache.Delete(ctx, CacheKey(id)); err != nil {
		slog.Warn("intervention cache invalidation failed", "id", id, "err", err)
	}
}

func (m *InterventionManager) publish(ctx context.Context, typ string, e *model.Intervention, actor string) {
	m.send(ctx, eventFor(typ, e, actor))
}

// send publishes after the commit; a broker failure never fails the request.
func (m *InterventionManager) send(ctx context.Context, ev queue.InterventionEvent) {
	ev.Stamp(m.now())
	err := m.publisher.Publish(ctx, ev)
	obs.EventPublished(ev.Type, err)
	if err != nil {
		slog.Warn("intervention event not published", "type", ev.Type, "id", ev.InterventionID, "err", err)
	}
}

func eventFor(typ string, e *model.Intervention, actor string) queue.InterventionEvent {
	ev := queue.InterventionEvent{
		Type:             typ,
		InterventionID:   e.ID,
		Name:             e.Name,
		ServiceType:      e.ServiceType.String(),
		ClientName:       e.ClientName(),
		TechniciansNames: e.TechnicianNames(),
		Actor:            actor,
	}
	if e.MaterialType != nil {
		ev.MaterialType = e.MaterialType.String()
	}
	return ev
}
