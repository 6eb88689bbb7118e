package model

import "time"

// Tracked carries the audit columns shared by work-order tables.
type Tracked struct {
	CreatedBy string    `gorm:"size:128;not null"`
	CreatedOn time.Time `gorm:"not null"`
	UpdatedBy string    `gorm:"size:128;not null"`
	UpdatedOn time.Time `gorm:"not null"`
}

// SetCreationData stamps a new record.  The update columns receive the same
// values so that a freshly created row never has an empty modifier.
func (t *Tracked) SetCreationData(username string, now time.Time) {
	now = now.UTC()
	t.CreatedBy, t.CreatedOn = username, now
	t.UpdatedBy, t.UpdatedOn = username, now
}

// SetUpdateData stamps a modification.
func (t *Tracked) SetUpdateData(username string, now time.Time) {
	t.UpdatedBy, t.UpdatedOn = username, now.UTC()
}
