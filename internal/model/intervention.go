package model

// Intervention is a work order stored in the `interventions` table.  It
// references one client and any number of technicians, all of them users.
// The name is optional and unique among existing rows, which is checked by
// validation rather than by an index.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – optional label of the work order.
//	ServiceType  – kind of job, always set.
//	MaterialType – main material involved, optional.
//	ClientID     – users.id of the client; cleared before deletion.
//	Technicians  – users assigned through intervention_technicians.
type Intervention struct {
	ID           uint64        `gorm:"primaryKey"`
	Name         *string       `gorm:"size:256;index"`
	ServiceType  ServiceType   `gorm:"not null"`
	MaterialType *MaterialType
	ClientID     *uint64 `gorm:"index"`
	Client       *User   `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL"`
	Technicians  []User  `gorm:"many2many:intervention_technicians;constraint:OnDelete:CASCADE"`
	Tracked
}

// TechnicianNames returns the usernames of the assigned technicians.
func (i *Intervention) TechnicianNames() []string {
	out := make([]string, 0, len(i.Technicians))
	for _, t := range i.Technicians {
		out = append(out, t.Username)
	}
	return out
}

// ClientName returns the client's username or "" when no client is loaded.
func (i *Intervention) ClientName() string {
	if i.Client == nil {
		return ""
	}
	return i.Client.Username
}
