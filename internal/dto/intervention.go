// Package dto holds the JSON shapes exchanged over HTTP.
package dto

import "github.com/iliyamo/intervention-api/internal/model"

// InterventionModel is the write model accepted by create/update and the
// row shape returned by search.  ID is ignored on input.  ServiceType is a
// pointer so that an absent or null value is told apart from the first
// enum member; search rows always carry it.
type InterventionModel struct {
	ID               uint64              `json:"id,omitempty"`
	Name             *string             `json:"name"`
	ServiceType      *model.ServiceType  `json:"serviceType"`
	MaterialType     *model.MaterialType `json:"materialType"`
	ClientName       string              `json:"clientName"`
	TechniciansNames []string            `json:"techniciansNames"`
}

// GetInterventionModel is the detailed read model returned by GetByID and
// kept in the read cache.
type GetInterventionModel struct {
	ID           uint64              `json:"id"`
	Name         *string             `json:"name"`
	ServiceType  model.ServiceType   `json:"serviceType"`
	MaterialType *model.MaterialType `json:"materialType"`
	Client       *UserModel          `json:"client"`
	Technicians  []UserModel         `json:"technicians"`
}

// UserModel is the public view of a user referenced by an intervention.
type UserModel struct {
	Name string `json:"name"`
}
