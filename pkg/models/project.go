package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is the tenancy root. Every subject, video group, assignment and
// access code hangs off exactly one project. CreatedBy is the owning
// scientist's id; ownership checks compare against it.
type Project struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Finished reports whether the project has been marked as ended.
func (p *Project) Finished() bool {
	return p.EndedAt != nil
}
