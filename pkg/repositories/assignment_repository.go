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

// AssignmentRepository defines the interface for assignment data access.
// Assignments come back with their labeler roster loaded.
type AssignmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*models.Assignment, error)
	ListByVideoGroup(ctx context.Context, videoGroupID uuid.UUID) ([]*models.Assignment, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Assignment, error)

	// AddLabeler puts a labeler on the assignment roster. Returns true if the
	// labeler was added, false if they were already a member.
	AddLabeler(ctx context.Context, assignmentID, labelerID uuid.UUID) (bool, error)
	// RemoveLabeler takes a labeler off the roster. Returns true if a row was
	// removed.
	RemoveLabeler(ctx context.Context, assignmentID, labelerID uuid.UUID) (bool, error)
	// RemoveAllByProject clears the rosters of every assignment in the
	// project. Returns the number of roster entries removed.
	RemoveAllByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

type assignmentRepository struct{}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository() AssignmentRepository {
	return &assignmentRepository{}
}

const assignmentColumns = `
	a.id, a.subject_id, a.video_group_id, a.created_at, a.updated_at,
	COALESCE(array_agg(al.labeler_id) FILTER (WHERE al.labeler_id IS NOT NULL), '{}')`

func (r *assignmentRepository) Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT` + assignmentColumns + `
		FROM assignments a
		LEFT JOIN assignment_labelers al ON al.assignment_id = a.id
		WHERE a.id = $1 AND a.deleted_at IS NULL
		GROUP BY a.id`

	a, err := scanAssignment(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return a, nil
}

func (r *assignmentRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*models.Assignment, error) {
	return r.list(ctx, `a.subject_id = $1`, subjectID)
}

func (r *assignmentRepository) ListByVideoGroup(ctx context.Context, videoGroupID uuid.UUID) ([]*models.Assignment, error) {
	return r.list(ctx, `a.video_group_id = $1`, videoGroupID)
}

func (r *assignmentRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Assignment, error) {
	return r.list(ctx, `a.subject_id IN (SELECT id FROM subjects WHERE project_id = $1)`, projectID)
}

func (r *assignmentRepository) list(ctx context.Context, where string, arg any) ([]*models.Assignment, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT` + assignmentColumns + `
		FROM assignments a
		LEFT JOIN assignment_labelers al ON al.assignment_id = a.id
		WHERE ` + where + ` AND a.deleted_at IS NULL
		GROUP BY a.id
		ORDER BY a.created_at`

	rows, err := scope.Conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(&a.ID, &a.SubjectID, &a.VideoGroupID, &a.CreatedAt, &a.UpdatedAt, &a.LabelerIDs)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) AddLabeler(ctx context.Context, assignmentID, labelerID uuid.UUID) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO assignment_labelers (assignment_id, labeler_id)
		VALUES ($1, $2)
		ON CONFLICT (assignment_id, labeler_id) DO NOTHING`

	result, err := scope.Conn.Exec(ctx, query, assignmentID, labelerID)
	if err != nil {
		return false, fmt.Errorf("failed to add labeler to assignment: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *assignmentRepository) RemoveLabeler(ctx context.Context, assignmentID, labelerID uuid.UUID) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	query := `DELETE FROM assignment_labelers WHERE assignment_id = $1 AND labeler_id = $2`

	result, err := scope.Conn.Exec(ctx, query, assignmentID, labelerID)
	if err != nil {
		return false, fmt.Errorf("failed to remove labeler from assignment: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *assignmentRepository) RemoveAllByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	query := `
		DELETE FROM assignment_labelers
		WHERE assignment_id IN (
			SELECT a.id
			FROM assignments a
			JOIN subjects s ON s.id = a.subject_id
			WHERE s.project_id = $1
		)`

	result, err := scope.Conn.Exec(ctx, query, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear assignment rosters: %w", err)
	}

	return result.RowsAffected(), nil
}

// Ensure assignmentRepository implements AssignmentRepository at compile time.
var _ AssignmentRepository = (*assignmentRepository)(nil)
