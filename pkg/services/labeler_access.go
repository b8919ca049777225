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

// LabelerAccessService answers whether a labeler may act on a resource.
// Access is granted only through explicit assignment roster membership,
// never through ownership. The one exception is an assigned label, which a
// labeler may touch only if they created it themselves.
type LabelerAccessService interface {
	// ResolveLabeler returns the caller's labeler record. ErrForbidden if
	// the labeler role is absent, ErrNotFound if the role is claimed but no
	// record is linked.
	ResolveLabeler(ctx context.Context) (*models.Labeler, error)

	CanAccessAssignment(ctx context.Context, labelerID, assignmentID uuid.UUID) (bool, error)
	CanAccessVideoGroup(ctx context.Context, labelerID, videoGroupID uuid.UUID) (bool, error)
	CanAccessSubject(ctx context.Context, labelerID, subjectID uuid.UUID) (bool, error)
	CanAccessVideo(ctx context.Context, labelerID, videoID uuid.UUID) (bool, error)

	// EnsureOwnsAssignedLabel authorizes iff the assigned label was created
	// by exactly this labeler.
	EnsureOwnsAssignedLabel(ctx context.Context, labelerID, assignedLabelID uuid.UUID) error

	// EnsureLabelerCanAccess is the single entry point callers use: it
	// resolves the caller's labeler record and dispatches on resource kind.
	EnsureLabelerCanAccess(ctx context.Context, kind models.EntityKind, resourceID uuid.UUID) error
}

type labelerAccessService struct {
	access         AccessContextService
	assignments    repositories.AssignmentRepository
	videos         repositories.VideoRepository
	assignedLabels repositories.AssignedLabelRepository
	logger         *zap.Logger
}

// NewLabelerAccessService creates a new labeler access service.
func NewLabelerAccessService(
	access AccessContextService,
	assignments repositories.AssignmentRepository,
	videos repositories.VideoRepository,
	assignedLabels repositories.AssignedLabelRepository,
	logger *zap.Logger,
) LabelerAccessService {
	return &labelerAccessService{
		access:         access,
		assignments:    assignments,
		videos:         videos,
		assignedLabels: assignedLabels,
		logger:         logger,
	}
}

func (s *labelerAccessService) ResolveLabeler(ctx context.Context) (*models.Labeler, error) {
	access, err := s.access.Resolve(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrRoleInconsistency) {
			return nil, fmt.Errorf("labeler record missing: %w", apperrors.ErrNotFound)
		}
		return nil, err
	}

	if !access.IsLabeler {
		return nil, fmt.Errorf("caller is not a labeler: %w", apperrors.ErrForbidden)
	}

	return access.Labeler, nil
}

// CanAccessAssignment reports roster membership. A missing assignment reads
// as false rather than an error.
func (s *labelerAccessService) CanAccessAssignment(ctx context.Context, labelerID, assignmentID uuid.UUID) (bool, error) {
	assignment, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return assignment.HasLabeler(labelerID), nil
}

// CanAccessVideoGroup grants access if any assignment covering the video
// group has the labeler on its roster. The scan short-circuits on the first
// match.
func (s *labelerAccessService) CanAccessVideoGroup(ctx context.Context, labelerID, videoGroupID uuid.UUID) (bool, error) {
	assignments, err := s.assignments.ListByVideoGroup(ctx, videoGroupID)
	if err != nil {
		return false, err
	}

	for _, a := range assignments {
		if a.HasLabeler(labelerID) {
			return true, nil
		}
	}

	return false, nil
}

// CanAccessSubject grants access if any assignment covering the subject has
// the labeler on its roster.
func (s *labelerAccessService) CanAccessSubject(ctx context.Context, labelerID, subjectID uuid.UUID) (bool, error) {
	assignments, err := s.assignments.ListBySubject(ctx, subjectID)
	if err != nil {
		return false, err
	}

	for _, a := range assignments {
		if a.HasLabeler(labelerID) {
			return true, nil
		}
	}

	return false, nil
}

// CanAccessVideo resolves the video's owning group and delegates to
// CanAccessVideoGroup.
func (s *labelerAccessService) CanAccessVideo(ctx context.Context, labelerID, videoID uuid.UUID) (bool, error) {
	video, err := s.videos.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return s.CanAccessVideoGroup(ctx, labelerID, video.VideoGroupID)
}

func (s *labelerAccessService) EnsureOwnsAssignedLabel(ctx context.Context, labelerID, assignedLabelID uuid.UUID) error {
	assignedLabel, err := s.assignedLabels.Get(ctx, assignedLabelID)
	if err != nil {
		return err
	}

	if assignedLabel.LabelerID != labelerID {
		return fmt.Errorf("assigned label belongs to another labeler: %w", apperrors.ErrForbidden)
	}

	return nil
}

func (s *labelerAccessService) EnsureLabelerCanAccess(ctx context.Context, kind models.EntityKind, resourceID uuid.UUID) error {
	err := s.ensureLabelerCanAccess(ctx, kind, resourceID)
	metrics.AuthzDecisions.WithLabelValues("labeler_access", outcomeLabel(err)).Inc()
	return err
}

func (s *labelerAccessService) ensureLabelerCanAccess(ctx context.Context, kind models.EntityKind, resourceID uuid.UUID) error {
	labeler, err := s.ResolveLabeler(ctx)
	if err != nil {
		return err
	}

	if kind == models.KindAssignedLabel {
		return s.EnsureOwnsAssignedLabel(ctx, labeler.ID, resourceID)
	}

	var allowed bool
	switch kind {
	case models.KindAssignment:
		allowed, err = s.CanAccessAssignment(ctx, labeler.ID, resourceID)
	case models.KindVideoGroup:
		allowed, err = s.CanAccessVideoGroup(ctx, labeler.ID, resourceID)
	case models.KindSubject:
		allowed, err = s.CanAccessSubject(ctx, labeler.ID, resourceID)
	case models.KindVideo:
		allowed, err = s.CanAccessVideo(ctx, labeler.ID, resourceID)
	default:
		return fmt.Errorf("labeler access check does not support resource kind %q", kind)
	}
	if err != nil {
		return err
	}

	if !allowed {
		return fmt.Errorf("labeler is not on any covering roster: %w", apperrors.ErrForbidden)
	}

	return nil
}

// Ensure labelerAccessService implements LabelerAccessService at compile time.
var _ LabelerAccessService = (*labelerAccessService)(nil)
