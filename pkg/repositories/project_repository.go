package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
)

// ProjectRepository defines the interface for project data access.
// Soft-deleted projects are invisible to every method here.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// AddLabeler adds a labeler to the project roster. Returns true if the
	// labeler was added, false if they were already a member.
	AddLabeler(ctx context.Context, projectID, labelerID uuid.UUID) (bool, error)
	// HasLabeler reports roster membership.
	HasLabeler(ctx context.Context, projectID, labelerID uuid.UUID) (bool, error)
	// RosterLabelerIDs returns the project roster ordered by join time.
	RosterLabelerIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)
}

type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (id, name, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := scope.Conn.Exec(ctx, query,
		project.ID, project.Name, project.Description, project.CreatedBy,
		project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, name, description, created_by, created_at, updated_at, ended_at, deleted_at
		FROM projects
		WHERE id = $1 AND deleted_at IS NULL`

	var p models.Project
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt, &p.EndedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &p, nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	project.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE projects
		SET name = $2, description = $3, updated_at = $4, ended_at = $5
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := scope.Conn.Exec(ctx, query,
		project.ID, project.Name, project.Description, project.UpdatedAt, project.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SoftDelete marks the project deleted. The row stays behind for referential
// integrity; subsequent lookups treat it as missing.
func (r *projectRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `UPDATE projects SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`

	result, err := scope.Conn.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *projectRepository) AddLabeler(ctx context.Context, projectID, labelerID uuid.UUID) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO project_labelers (project_id, labeler_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id, labeler_id) DO NOTHING`

	result, err := scope.Conn.Exec(ctx, query, projectID, labelerID)
	if err != nil {
		return false, fmt.Errorf("failed to add labeler to project: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *projectRepository) HasLabeler(ctx context.Context, projectID, labelerID uuid.UUID) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	query := `SELECT EXISTS (SELECT 1 FROM project_labelers WHERE project_id = $1 AND labeler_id = $2)`

	var exists bool
	if err := scope.Conn.QueryRow(ctx, query, projectID, labelerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check project roster: %w", err)
	}

	return exists, nil
}

func (r *projectRepository) RosterLabelerIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT labeler_id
		FROM project_labelers
		WHERE project_id = $1
		ORDER BY joined_at`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project roster: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Ensure projectRepository implements ProjectRepository at compile time.
var _ ProjectRepository = (*projectRepository)(nil)
