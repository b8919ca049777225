package models

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent records one state transition on a domain entity. Events are
// append-only: the recorder never removes or reorders them. DeliveredAt is
// set by the dispatcher after successful delivery; rows with a nil
// DeliveredAt are pending.
type DomainEvent struct {
	ID          uuid.UUID      `json:"id"`
	EntityKind  EntityKind     `json:"entity_kind"`
	EntityID    uuid.UUID      `json:"entity_id"`
	Kind        string         `json:"kind"`
	ActorID     uuid.UUID      `json:"actor_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
}

// Domain event kinds.
const (
	EventProjectCreated    = "project.created"
	EventProjectUpdated    = "project.updated"
	EventAccessCodeIssued  = "access_code.issued"
	EventAccessCodeRetired = "access_code.retired"
	EventLabelerJoined     = "project.labeler_joined"
	EventLabelerAssigned   = "assignment.labeler_assigned"
	EventLabelerUnassigned = "assignment.labeler_unassigned"
	EventLabelersCleared   = "assignment.labelers_cleared"
)
