package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

// UserService provisions user records from identity provider claims and keeps
// the per-role domain records in step with the role set.
type UserService interface {
	// Register creates the user record for the caller from their token
	// claims, along with the scientist or labeler record each claimed role
	// requires. Registering an existing user backfills any missing role
	// records instead of failing, so the call is safe to repeat.
	Register(ctx context.Context) (*models.User, error)

	// Get returns a user record. Callers may read themselves; anything else
	// requires the admin role.
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)

	// SetRoles replaces a user's role set and creates any domain records the
	// new roles require. Admin only. Records for removed roles are kept, so
	// re-granting a role restores prior ownership links.
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) (*models.User, error)
}

type userService struct {
	users      repositories.UserRepository
	scientists repositories.ScientistRepository
	labelers   repositories.LabelerRepository
	logger     *zap.Logger
	inTx       txFunc
}

// NewUserService creates a new user service.
func NewUserService(
	users repositories.UserRepository,
	scientists repositories.ScientistRepository,
	labelers repositories.LabelerRepository,
	logger *zap.Logger,
) UserService {
	return &userService{
		users:      users,
		scientists: scientists,
		labelers:   labelers,
		logger:     logger,
		inTx:       database.WithTx,
	}
}

// Register works from raw claims rather than a resolved access context: the
// caller's role records do not exist yet, which is exactly what resolution
// would reject.
func (s *userService) Register(ctx context.Context) (*models.User, error) {
	claims, ok := auth.GetClaims(ctx)
	if !ok {
		return nil, apperrors.ErrIdentityMissing
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("malformed subject claim: %w", apperrors.ErrIdentityMissing)
	}

	var roles []string
	for _, role := range claims.Roles {
		if !models.IsValidRole(role) {
			return nil, fmt.Errorf("unknown role %q in claims: %w", role, apperrors.ErrConflict)
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, apperrors.ErrNoRecognizedRole
	}

	var user *models.User
	err = s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.users.Get(ctx, userID)
		switch {
		case err == nil:
			user = existing
		case errors.Is(err, apperrors.ErrNotFound):
			user = &models.User{ID: userID, Username: claims.Username, Roles: roles}
			if err := s.users.Create(ctx, user); err != nil {
				return err
			}
		default:
			return err
		}

		return s.ensureRoleRecords(ctx, user.ID, user.Roles)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.Strings("roles", user.Roles))

	return user, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	claims, ok := auth.GetClaims(ctx)
	if !ok {
		return nil, apperrors.ErrIdentityMissing
	}

	if claims.Subject != id.String() && !claims.HasRole(models.RoleAdmin) {
		return nil, fmt.Errorf("cannot read another user's record: %w", apperrors.ErrForbidden)
	}

	return s.users.Get(ctx, id)
}

func (s *userService) SetRoles(ctx context.Context, id uuid.UUID, roles []string) (*models.User, error) {
	claims, ok := auth.GetClaims(ctx)
	if !ok {
		return nil, apperrors.ErrIdentityMissing
	}
	if !claims.HasRole(models.RoleAdmin) {
		return nil, fmt.Errorf("role changes require the admin role: %w", apperrors.ErrForbidden)
	}

	var user *models.User
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.users.SetRoles(ctx, id, roles); err != nil {
			return err
		}
		if err := s.ensureRoleRecords(ctx, id, roles); err != nil {
			return err
		}

		var err error
		user, err = s.users.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user roles updated",
		zap.String("user_id", id.String()),
		zap.Strings("roles", roles))

	return user, nil
}

// ensureRoleRecords creates the scientist and labeler records the role set
// requires, skipping ones that already exist.
func (s *userService) ensureRoleRecords(ctx context.Context, userID uuid.UUID, roles []string) error {
	for _, role := range roles {
		switch role {
		case models.RoleScientist:
			_, err := s.scientists.GetByUserID(ctx, userID)
			if errors.Is(err, apperrors.ErrNotFound) {
				err = s.scientists.Create(ctx, &models.Scientist{UserID: userID})
			}
			if err != nil {
				return err
			}
		case models.RoleLabeler:
			_, err := s.labelers.GetByUserID(ctx, userID)
			if errors.Is(err, apperrors.ErrNotFound) {
				err = s.labelers.Create(ctx, &models.Labeler{UserID: userID})
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Ensure userService implements UserService at compile time.
var _ UserService = (*userService)(nil)
