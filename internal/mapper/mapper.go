// Package mapper converts between persisted entities, HTTP models and
// business errors.
package mapper

import (
	"github.com/iliyamo/intervention-api/internal/apperr"
	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/validation"
)

// ToInterventionModel maps an entity loaded with client and technicians to
// the search row shape.
func ToInterventionModel(e *model.Intervention) dto.InterventionModel {
	st := e.ServiceType
	return dto.InterventionModel{
		ID:               e.ID,
		Name:             e.Name,
		ServiceType:      &st,
		MaterialType:     e.MaterialType,
		ClientName:       e.ClientName(),
		TechniciansNames: e.TechnicianNames(),
	}
}

// ToInterventionModels maps a slice; the result is never nil.
func ToInterventionModels(es []model.Intervention) []dto.InterventionModel {
	out := make([]dto.InterventionModel, 0, len(es))
	for i := range es {
		out = append(out, ToInterventionModel(&es[i]))
	}
	return out
}

// ToGetInterventionModel maps an entity to the detailed read model.
func ToGetInterventionModel(e *model.Intervention) dto.GetInterventionModel {
	out := dto.GetInterventionModel{
		ID:           e.ID,
		Name:         e.Name,
		ServiceType:  e.ServiceType,
		MaterialType: e.MaterialType,
		Technicians:  make([]dto.UserModel, 0, len(e.Technicians)),
	}
	if e.Client != nil {
		out.Client = &dto.UserModel{Name: e.Client.Username}
	}
	for _, t := range e.Technicians {
		out.Technicians = append(out.Technicians, dto.UserModel{Name: t.Username})
	}
	return out
}

// ApplyInterventionModel copies the scalar fields of m onto e.  Client and
// technicians are resolved by the caller.  m must have passed validation,
// so ServiceType is set.
func ApplyInterventionModel(e *model.Intervention, m *dto.InterventionModel) {
	e.Name = m.Name
	if e.Name != nil && *e.Name == "" {
		e.Name = nil
	}
	if m.ServiceType != nil {
		e.ServiceType = *m.ServiceType
	}
	e.MaterialType = m.MaterialType
}

// ToBusinessErrors converts validation failures.  Codes outside the
// catalogue become InconsistentModel.
func ToBusinessErrors(fs []validation.Failure) []apperr.BusinessError {
	out := make([]apperr.BusinessError, 0, len(fs))
	for _, f := range fs {
		out = append(out, apperr.BusinessError{
			Code:           apperr.ParseErrorCode(f.Code),
			Message:        f.Message,
			ValueInFailure: f.AttemptedValue,
		})
	}
	return out
}
