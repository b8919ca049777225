// Package repositories contains pgx-backed data access for vidmark-engine.
// Every repository reads its connection from the request scope in context;
// pgx.ErrNoRows is mapped to apperrors.ErrNotFound at this layer.
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

// ScientistRepository defines the interface for scientist record access.
type ScientistRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Scientist, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Scientist, error)
	Create(ctx context.Context, scientist *models.Scientist) error
}

type scientistRepository struct{}

// NewScientistRepository creates a new scientist repository.
func NewScientistRepository() ScientistRepository {
	return &scientistRepository{}
}

func (r *scientistRepository) Get(ctx context.Context, id uuid.UUID) (*models.Scientist, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, user_id, title, created_at
		FROM scientists
		WHERE id = $1`

	var s models.Scientist
	err := scope.Conn.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scientist: %w", err)
	}

	return &s, nil
}

func (r *scientistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Scientist, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, user_id, title, created_at
		FROM scientists
		WHERE user_id = $1`

	var s models.Scientist
	err := scope.Conn.QueryRow(ctx, query, userID).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scientist by user: %w", err)
	}

	return &s, nil
}

func (r *scientistRepository) Create(ctx context.Context, scientist *models.Scientist) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if scientist.ID == uuid.Nil {
		scientist.ID = uuid.New()
	}

	query := `
		INSERT INTO scientists (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := scope.Conn.QueryRow(ctx, query, scientist.ID, scientist.UserID, scientist.Title).
		Scan(&scientist.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create scientist: %w", err)
	}

	return nil
}

// Ensure scientistRepository implements ScientistRepository at compile time.
var _ ScientistRepository = (*scientistRepository)(nil)
