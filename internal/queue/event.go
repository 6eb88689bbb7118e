// Package queue carries intervention domain events over RabbitMQ: the
// publisher used by the service layer and the audit consumer that appends
// every event to a log file.
package queue

import "time"

// Event types.
const (
	EventCreated = "intervention.created"
	EventUpdated = "intervention.updated"
	EventDeleted = "intervention.deleted"
)

// QueueName is the durable queue receiving every intervention event.
const QueueName = "intervention.events"

// InterventionEvent describes a committed change to an intervention.  It
// carries enough for downstream consumers to log or notify without querying
// the primary database.
type InterventionEvent struct {
	Type             string   `json:"type"`
	InterventionID   uint64   `json:"intervention_id"`
	Name             *string  `json:"name,omitempty"`
	ServiceType      string   `json:"service_type,omitempty"`
	MaterialType     string   `json:"material_type,omitempty"`
	ClientName       string   `json:"client_name,omitempty"`
	TechniciansNames []string `json:"technicians,omitempty"`
	Actor            string   `json:"actor"`
	OccurredAt       string   `json:"occurred_at"`
}

// Stamp sets OccurredAt to t in RFC 3339 UTC.
func (e *InterventionEvent) Stamp(t time.Time) {
	e.OccurredAt = t.UTC().Format(time.RFC3339)
}
