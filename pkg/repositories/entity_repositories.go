package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
)

// SubjectRepository provides by-id lookups for subjects.
type SubjectRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Subject, error)
}

type subjectRepository struct{}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository() SubjectRepository {
	return &subjectRepository{}
}

func (r *subjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Subject, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, name, description, created_at
		FROM subjects
		WHERE id = $1 AND deleted_at IS NULL`

	var s models.Subject
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.ProjectID, &s.Name, &s.Description, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	return &s, nil
}

var _ SubjectRepository = (*subjectRepository)(nil)

// VideoGroupRepository provides by-id lookups for video groups.
type VideoGroupRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.VideoGroup, error)
}

type videoGroupRepository struct{}

// NewVideoGroupRepository creates a new video group repository.
func NewVideoGroupRepository() VideoGroupRepository {
	return &videoGroupRepository{}
}

func (r *videoGroupRepository) Get(ctx context.Context, id uuid.UUID) (*models.VideoGroup, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, name, description, created_at
		FROM video_groups
		WHERE id = $1 AND deleted_at IS NULL`

	var vg models.VideoGroup
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&vg.ID, &vg.ProjectID, &vg.Name, &vg.Description, &vg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video group: %w", err)
	}

	return &vg, nil
}

var _ VideoGroupRepository = (*videoGroupRepository)(nil)

// VideoRepository provides by-id lookups for videos.
type VideoRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Video, error)
}

type videoRepository struct{}

// NewVideoRepository creates a new video repository.
func NewVideoRepository() VideoRepository {
	return &videoRepository{}
}

func (r *videoRepository) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, video_group_id, title, position, created_at
		FROM videos
		WHERE id = $1 AND deleted_at IS NULL`

	var v models.Video
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.VideoGroupID, &v.Title, &v.Position, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &v, nil
}

var _ VideoRepository = (*videoRepository)(nil)

// LabelRepository provides by-id lookups for labels.
type LabelRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Label, error)
}

type labelRepository struct{}

// NewLabelRepository creates a new label repository.
func NewLabelRepository() LabelRepository {
	return &labelRepository{}
}

func (r *labelRepository) Get(ctx context.Context, id uuid.UUID) (*models.Label, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, subject_id, name, color_hex, shortcut, created_at
		FROM labels
		WHERE id = $1 AND deleted_at IS NULL`

	var l models.Label
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.SubjectID, &l.Name, &l.ColorHex, &l.Shortcut, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get label: %w", err)
	}

	return &l, nil
}

var _ LabelRepository = (*labelRepository)(nil)

// AssignedLabelRepository provides by-id lookups for assigned labels.
type AssignedLabelRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.AssignedLabel, error)
}

type assignedLabelRepository struct{}

// NewAssignedLabelRepository creates a new assigned label repository.
func NewAssignedLabelRepository() AssignedLabelRepository {
	return &assignedLabelRepository{}
}

func (r *assignedLabelRepository) Get(ctx context.Context, id uuid.UUID) (*models.AssignedLabel, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, label_id, assignment_id, labeler_id, video_id, start_ms, end_ms, created_at
		FROM assigned_labels
		WHERE id = $1 AND deleted_at IS NULL`

	var al models.AssignedLabel
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&al.ID, &al.LabelID, &al.AssignmentID, &al.LabelerID,
		&al.VideoID, &al.StartMs, &al.EndMs, &al.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assigned label: %w", err)
	}

	return &al, nil
}

var _ AssignedLabelRepository = (*assignedLabelRepository)(nil)
