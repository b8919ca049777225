package models

import (
	"time"

	"github.com/google/uuid"
)

// Label is an annotation category defined on a subject.
type Label struct {
	ID        uuid.UUID  `json:"id"`
	SubjectID uuid.UUID  `json:"subject_id"`
	Name      string     `json:"name"`
	ColorHex  string     `json:"color_hex,omitempty"`
	Shortcut  string     `json:"shortcut,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// AssignedLabel is a labeler's concrete annotation: one application of a
// label to a time range of a video, created inside an assignment. A labeler
// may only touch assigned labels they created themselves.
type AssignedLabel struct {
	ID           uuid.UUID  `json:"id"`
	LabelID      uuid.UUID  `json:"label_id"`
	AssignmentID uuid.UUID  `json:"assignment_id"`
	LabelerID    uuid.UUID  `json:"labeler_id"`
	VideoID      uuid.UUID  `json:"video_id"`
	StartMs      int64      `json:"start_ms"`
	EndMs        int64      `json:"end_ms"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}
