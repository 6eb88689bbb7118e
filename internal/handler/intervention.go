package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/middleware"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// Interventions is the work-order service used by InterventionHandler.
type Interventions interface {
	Search(ctx context.Context, isAdmin bool, username string) ([]dto.InterventionModel, error)
	GetByID(ctx context.Context, id uint64) (dto.GetInterventionModel, error)
	Create(ctx context.Context, in *dto.InterventionModel, username string) (uint64, error)
	Update(ctx context.Context, id uint64, in *dto.InterventionModel, username string) (uint64, error)
	Delete(ctx context.Context, id uint64, username string) error
}

// InterventionHandler serves /intervention.  Errors are returned untouched
// and rendered by the central error handler.
type InterventionHandler struct {
	svc Interventions
}

// NewInterventionHandler binds the handler to the intervention service.  It
// panics if svc is nil.
func NewInterventionHandler(svc Interventions) *InterventionHandler {
	if svc == nil {
		panic("nil service passed to NewInterventionHandler")
	}
	return &InterventionHandler{svc: svc}
}

// Search lists every intervention for admins and the caller's assignments
// for everyone else.  A caller with no assignment gets an empty array.
func (h *InterventionHandler) Search(c echo.Context) error {
	// caller identity was set by the JWT middleware
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.svc.Search(ctx, middleware.IsAdmin(c), middleware.Username(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// GetByID returns the detailed view of one intervention, with its client
// and technicians.  Unknown ids are a 404 rendered by the error handler.
func (h *InterventionHandler) GetByID(c echo.Context) error {
	// parse path id
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Create validates the body, stores a new intervention stamped with the
// caller as creator and responds with the new id.  Validation failures are
// returned as a *apperr.ValidationError and rendered per group policy.
func (h *InterventionHandler) Create(c echo.Context) error {
	// nil model is allowed here; the validator reports it
	in, err := bindModel(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := h.svc.Create(ctx, in, middleware.Username(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, id)
}

// Update overwrites the intervention at :id with the body and responds with
// its id.  The name may stay the same; it must not collide with another row.
func (h *InterventionHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	in, err := bindModel(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	// validation runs before the existence check, as for Create
	out, err := h.svc.Update(ctx, id, in, middleware.Username(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes the intervention at :id and answers 204.  Its client and
// technicians are kept; only the links to them are dropped.
func (h *InterventionHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, id, middleware.Username(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// parseID reads the :id path parameter.  Ids start at 1.
func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// bindModel decodes the request body.  An empty body or a JSON null yields
// a nil model, which the validator reports as not supplied.  Absent fields
// stay nil so that required ones can be reported.
func bindModel(c echo.Context) (*dto.InterventionModel, error) {
	// no body at all
	if c.Request().ContentLength == 0 {
		return nil, nil
	}
	var in *dto.InterventionModel
	if err := c.Echo().JSONSerializer.Deserialize(c, &in); err != nil {
		// body of whitespace only
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return in, nil
}
