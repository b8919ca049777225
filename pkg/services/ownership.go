package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/metrics"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

// OwnershipService answers whether a scientist (or admin) may act on an
// entity. Ownership is decided by walking the entity up to its project and
// comparing the project's creator with the caller's scientist record.
//
// A traversal hop that fails to resolve yields ErrNotFound, never
// ErrForbidden. ErrForbidden is reserved for the final creator comparison,
// so a denied caller cannot tell a hidden resource from a missing one.
type OwnershipService interface {
	EnsureScientistOwns(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error
}

type ownershipService struct {
	access      AccessContextService
	projects    repositories.ProjectRepository
	subjects    repositories.SubjectRepository
	videoGroups repositories.VideoGroupRepository
	videos      repositories.VideoRepository
	labels      repositories.LabelRepository
	assignments repositories.AssignmentRepository
	logger      *zap.Logger
}

// NewOwnershipService creates a new ownership service.
func NewOwnershipService(
	access AccessContextService,
	projects repositories.ProjectRepository,
	subjects repositories.SubjectRepository,
	videoGroups repositories.VideoGroupRepository,
	videos repositories.VideoRepository,
	labels repositories.LabelRepository,
	assignments repositories.AssignmentRepository,
	logger *zap.Logger,
) OwnershipService {
	return &ownershipService{
		access:      access,
		projects:    projects,
		subjects:    subjects,
		videoGroups: videoGroups,
		videos:      videos,
		labels:      labels,
		assignments: assignments,
		logger:      logger,
	}
}

func (s *ownershipService) EnsureScientistOwns(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error {
	err := s.ensureScientistOwns(ctx, kind, entityID)
	metrics.AuthzDecisions.WithLabelValues("ownership", outcomeLabel(err)).Inc()
	return err
}

func (s *ownershipService) ensureScientistOwns(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error {
	access, err := s.access.Resolve(ctx)
	if err != nil {
		return err
	}

	if access.IsAdmin {
		return nil
	}

	if !access.IsScientist {
		return fmt.Errorf("caller is not a scientist: %w", apperrors.ErrForbidden)
	}

	projectID, err := s.projectIDOf(ctx, kind, entityID)
	if err != nil {
		return err
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}

	if project.CreatedBy != access.Scientist.ID {
		s.logger.Debug("ownership check denied",
			zap.String("kind", string(kind)),
			zap.String("entity_id", entityID.String()),
			zap.String("scientist_id", access.Scientist.ID.String()))
		return fmt.Errorf("scientist does not own project %s: %w", projectID, apperrors.ErrForbidden)
	}

	return nil
}

// projectIDOf resolves an entity to its owning project id. Traversal depth
// is one to three dependent lookups depending on the entity kind.
func (s *ownershipService) projectIDOf(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) (uuid.UUID, error) {
	switch kind {
	case models.KindProject:
		return entityID, nil

	case models.KindSubject:
		subject, err := s.subjects.Get(ctx, entityID)
		if err != nil {
			return uuid.Nil, err
		}
		return subject.ProjectID, nil

	case models.KindVideoGroup:
		group, err := s.videoGroups.Get(ctx, entityID)
		if err != nil {
			return uuid.Nil, err
		}
		return group.ProjectID, nil

	case models.KindVideo:
		video, err := s.videos.Get(ctx, entityID)
		if err != nil {
			return uuid.Nil, err
		}
		group, err := s.videoGroups.Get(ctx, video.VideoGroupID)
		if err != nil {
			return uuid.Nil, err
		}
		return group.ProjectID, nil

	case models.KindLabel:
		label, err := s.labels.Get(ctx, entityID)
		if err != nil {
			return uuid.Nil, err
		}
		subject, err := s.subjects.Get(ctx, label.SubjectID)
		if err != nil {
			return uuid.Nil, err
		}
		return subject.ProjectID, nil

	case models.KindAssignment:
		assignment, err := s.assignments.Get(ctx, entityID)
		if err != nil {
			return uuid.Nil, err
		}
		subject, err := s.subjects.Get(ctx, assignment.SubjectID)
		if err != nil {
			return uuid.Nil, err
		}
		return subject.ProjectID, nil

	default:
		return uuid.Nil, fmt.Errorf("ownership check does not support entity kind %q", kind)
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAllowed
	case errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrNoRecognizedRole):
		return metrics.OutcomeForbidden
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrRoleInconsistency):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

// Ensure ownershipService implements OwnershipService at compile time.
var _ OwnershipService = (*ownershipService)(nil)
