// Package services contains the authorization and credential core of
// vidmark-engine: identity resolution, ownership and labeler access checks,
// the access code lifecycle, and domain event recording.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

// AccessContextService turns an authenticated principal into a typed access
// context. Resolution runs on every authorization call; there is no
// cross-call caching, so a role change takes effect on the next request.
type AccessContextService interface {
	Resolve(ctx context.Context) (*models.AccessContext, error)
}

type accessContextService struct {
	scientists repositories.ScientistRepository
	labelers   repositories.LabelerRepository
	logger     *zap.Logger
}

// NewAccessContextService creates a new access context service.
func NewAccessContextService(
	scientists repositories.ScientistRepository,
	labelers repositories.LabelerRepository,
	logger *zap.Logger,
) AccessContextService {
	return &accessContextService{
		scientists: scientists,
		labelers:   labelers,
		logger:     logger,
	}
}

// Resolve builds the access context from the claims on ctx.
//
// Failure modes are distinct on purpose: a missing identity is an
// authentication problem, a claimed role with no linked domain record is a
// data integrity problem, and an empty role set is a permission problem.
// Callers map each to a different response.
func (s *accessContextService) Resolve(ctx context.Context) (*models.AccessContext, error) {
	claims, ok := auth.GetClaims(ctx)
	if !ok {
		return nil, apperrors.ErrIdentityMissing
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, apperrors.ErrIdentityMissing
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("malformed subject claim: %w", apperrors.ErrIdentityMissing)
	}

	access := &models.AccessContext{
		UserID:      userID,
		IsAdmin:     claims.HasRole(models.RoleAdmin),
		IsScientist: claims.HasRole(models.RoleScientist),
		IsLabeler:   claims.HasRole(models.RoleLabeler),
	}

	if !access.IsAdmin && !access.IsScientist && !access.IsLabeler {
		return nil, apperrors.ErrNoRecognizedRole
	}

	if access.IsScientist {
		scientist, err := s.scientists.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.Warn("scientist role claimed without linked record",
					zap.String("user_id", userID.String()))
				return nil, fmt.Errorf("scientist record missing for user %s: %w",
					userID, apperrors.ErrRoleInconsistency)
			}
			return nil, fmt.Errorf("failed to resolve scientist record: %w", err)
		}
		access.Scientist = scientist
	}

	if access.IsLabeler {
		labeler, err := s.labelers.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.Warn("labeler role claimed without linked record",
					zap.String("user_id", userID.String()))
				return nil, fmt.Errorf("labeler record missing for user %s: %w",
					userID, apperrors.ErrRoleInconsistency)
			}
			return nil, fmt.Errorf("failed to resolve labeler record: %w", err)
		}
		access.Labeler = labeler
	}

	return access, nil
}

// Ensure accessContextService implements AccessContextService at compile time.
var _ AccessContextService = (*accessContextService)(nil)
