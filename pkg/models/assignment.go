package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment pairs a subject with a video group inside one project and
// carries the roster of labelers allowed to work on that pairing. It is the
// unit of labeler access: a labeler can reach a subject, video group or video
// only through membership in some assignment covering it.
type Assignment struct {
	ID           uuid.UUID   `json:"id"`
	SubjectID    uuid.UUID   `json:"subject_id"`
	VideoGroupID uuid.UUID   `json:"video_group_id"`
	LabelerIDs   []uuid.UUID `json:"labeler_ids"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
}

// HasLabeler reports whether the given labeler is on the assignment roster.
func (a *Assignment) HasLabeler(labelerID uuid.UUID) bool {
	for _, id := range a.LabelerIDs {
		if id == labelerID {
			return true
		}
	}
	return false
}
