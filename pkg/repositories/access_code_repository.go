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

// AccessCodeRepository defines the interface for access code data access.
type AccessCodeRepository interface {
	Create(ctx context.Context, code *models.AccessCode) error
	GetByCode(ctx context.Context, code string) (*models.AccessCode, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.AccessCode, error)

	// GetLiveByProjectForUpdate returns the project's live code at the given
	// instant, locking the row until the surrounding transaction ends.
	GetLiveByProjectForUpdate(ctx context.Context, projectID uuid.UUID, now time.Time) (*models.AccessCode, error)
	// SetExpiration updates a code's expiration timestamp.
	SetExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	// AcquireProjectLock takes a transaction-scoped advisory lock keyed on
	// the project id. Rotations for the same project serialize behind it.
	AcquireProjectLock(ctx context.Context, projectID uuid.UUID) error
}

type accessCodeRepository struct{}

// NewAccessCodeRepository creates a new access code repository.
func NewAccessCodeRepository() AccessCodeRepository {
	return &accessCodeRepository{}
}

func (r *accessCodeRepository) Create(ctx context.Context, code *models.AccessCode) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}

	query := `
		INSERT INTO access_codes (id, project_id, code, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := scope.Conn.QueryRow(ctx, query,
		code.ID, code.ProjectID, code.Code, code.CreatedBy, code.ExpiresAt).
		Scan(&code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create access code: %w", err)
	}

	return nil
}

func (r *accessCodeRepository) GetByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, code, created_by, created_at, expires_at
		FROM access_codes
		WHERE code = $1`

	var c models.AccessCode
	err := scope.Conn.QueryRow(ctx, query, code).Scan(
		&c.ID, &c.ProjectID, &c.Code, &c.CreatedBy, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get access code: %w", err)
	}

	return &c, nil
}

func (r *accessCodeRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.AccessCode, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, code, created_by, created_at, expires_at
		FROM access_codes
		WHERE project_id = $1
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.AccessCode
	for rows.Next() {
		var c models.AccessCode
		err := rows.Scan(&c.ID, &c.ProjectID, &c.Code, &c.CreatedBy, &c.CreatedAt, &c.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access code: %w", err)
		}
		codes = append(codes, &c)
	}

	return codes, rows.Err()
}

func (r *accessCodeRepository) GetLiveByProjectForUpdate(ctx context.Context, projectID uuid.UUID, now time.Time) (*models.AccessCode, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	// At most one live row is expected per project; newest wins if that was
	// ever violated out of band. A code is still live at its exact
	// expiration instant, matching models.AccessCode.LiveAt.
	query := `
		SELECT id, project_id, code, created_by, created_at, expires_at
		FROM access_codes
		WHERE project_id = $1 AND (expires_at IS NULL OR expires_at >= $2)
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`

	var c models.AccessCode
	err := scope.Conn.QueryRow(ctx, query, projectID, now).Scan(
		&c.ID, &c.ProjectID, &c.Code, &c.CreatedBy, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get live access code: %w", err)
	}

	return &c, nil
}

func (r *accessCodeRepository) SetExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `UPDATE access_codes SET expires_at = $2 WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query, id, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set access code expiration: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *accessCodeRepository) AcquireProjectLock(ctx context.Context, projectID uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	// The lock is released automatically at transaction end.
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

	if _, err := scope.Conn.Exec(ctx, query, projectID); err != nil {
		return fmt.Errorf("failed to acquire project rotation lock: %w", err)
	}

	return nil
}

// Ensure accessCodeRepository implements AccessCodeRepository at compile time.
var _ AccessCodeRepository = (*accessCodeRepository)(nil)
