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

// LabelerRepository defines the interface for labeler record access.
type LabelerRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Labeler, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Labeler, error)
	Create(ctx context.Context, labeler *models.Labeler) error
}

type labelerRepository struct{}

// NewLabelerRepository creates a new labeler repository.
func NewLabelerRepository() LabelerRepository {
	return &labelerRepository{}
}

func (r *labelerRepository) Get(ctx context.Context, id uuid.UUID) (*models.Labeler, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT id, user_id, created_at FROM labelers WHERE id = $1`

	var l models.Labeler
	err := scope.Conn.QueryRow(ctx, query, id).Scan(&l.ID, &l.UserID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get labeler: %w", err)
	}

	return &l, nil
}

func (r *labelerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Labeler, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT id, user_id, created_at FROM labelers WHERE user_id = $1`

	var l models.Labeler
	err := scope.Conn.QueryRow(ctx, query, userID).Scan(&l.ID, &l.UserID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get labeler by user: %w", err)
	}

	return &l, nil
}

func (r *labelerRepository) Create(ctx context.Context, labeler *models.Labeler) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if labeler.ID == uuid.Nil {
		labeler.ID = uuid.New()
	}

	query := `INSERT INTO labelers (id, user_id) VALUES ($1, $2) RETURNING created_at`

	err := scope.Conn.QueryRow(ctx, query, labeler.ID, labeler.UserID).Scan(&labeler.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create labeler: %w", err)
	}

	return nil
}

// Ensure labelerRepository implements LabelerRepository at compile time.
var _ LabelerRepository = (*labelerRepository)(nil)
