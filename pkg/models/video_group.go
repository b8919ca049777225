package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoGroup is an ordered collection of videos within a project.
type VideoGroup struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Video is a single clip inside a video group. Position fixes its place in
// the group's ordered sequence.
type Video struct {
	ID           uuid.UUID  `json:"id"`
	VideoGroupID uuid.UUID  `json:"video_group_id"`
	Title        string     `json:"title"`
	Position     int        `json:"position"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}
