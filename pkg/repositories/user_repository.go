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

// UserRepository defines the interface for user record access.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) error
}

type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT id, username, roles, created_at FROM users WHERE id = $1`

	var u models.User
	err := scope.Conn.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.Roles, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Roles == nil {
		user.Roles = []string{}
	}

	query := `INSERT INTO users (id, username, roles) VALUES ($1, $2, $3) RETURNING created_at`

	err := scope.Conn.QueryRow(ctx, query, user.ID, user.Username, user.Roles).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) SetRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	for _, role := range roles {
		if !models.IsValidRole(role) {
			return fmt.Errorf("unknown role %q: %w", role, apperrors.ErrConflict)
		}
	}

	query := `UPDATE users SET roles = $2 WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query, id, roles)
	if err != nil {
		return fmt.Errorf("failed to set user roles: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Ensure userRepository implements UserRepository at compile time.
var _ UserRepository = (*userRepository)(nil)
