package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

// MembershipService manages labeler membership: joining a project by access
// code, and placing labelers on assignment rosters. Roster mutations are
// gated on project ownership.
type MembershipService interface {
	// JoinProject redeems an access code for the calling labeler. An absent
	// or expired code fails with ErrNotFound either way, so a caller cannot
	// probe which codes exist. Joining twice is a no-op.
	JoinProject(ctx context.Context, code string) (*models.Project, error)

	// AssignLabeler puts a labeler on an assignment roster. The labeler
	// must already be on the project roster.
	AssignLabeler(ctx context.Context, assignmentID, labelerID, actorID uuid.UUID) error

	// UnassignLabeler removes a labeler from an assignment roster.
	UnassignLabeler(ctx context.Context, assignmentID, labelerID, actorID uuid.UUID) error

	// UnassignAllLabelers clears every assignment roster in the project.
	UnassignAllLabelers(ctx context.Context, projectID, actorID uuid.UUID) error

	// DistributeLabelersEqually spreads the project roster across the
	// project's assignments round-robin, so roster sizes differ by at most
	// one.
	DistributeLabelersEqually(ctx context.Context, projectID, actorID uuid.UUID) error
}

type membershipService struct {
	labelerAccess LabelerAccessService
	ownership     OwnershipService
	projects      repositories.ProjectRepository
	subjects      repositories.SubjectRepository
	assignments   repositories.AssignmentRepository
	codes         repositories.AccessCodeRepository
	events        DomainEventService
	logger        *zap.Logger
	inTx          txFunc
	now           func() time.Time
}

// NewMembershipService creates a new membership service.
func NewMembershipService(
	labelerAccess LabelerAccessService,
	ownership OwnershipService,
	projects repositories.ProjectRepository,
	subjects repositories.SubjectRepository,
	assignments repositories.AssignmentRepository,
	codes repositories.AccessCodeRepository,
	events DomainEventService,
	logger *zap.Logger,
) MembershipService {
	return &membershipService{
		labelerAccess: labelerAccess,
		ownership:     ownership,
		projects:      projects,
		subjects:      subjects,
		assignments:   assignments,
		codes:         codes,
		events:        events,
		logger:        logger,
		inTx:          database.WithTx,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *membershipService) JoinProject(ctx context.Context, code string) (*models.Project, error) {
	labeler, err := s.labelerAccess.ResolveLabeler(ctx)
	if err != nil {
		return nil, err
	}

	found, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if found.ExpiredAt(s.now()) {
		return nil, fmt.Errorf("access code expired: %w", apperrors.ErrNotFound)
	}

	project, err := s.projects.Get(ctx, found.ProjectID)
	if err != nil {
		return nil, err
	}

	var added bool
	err = s.inTx(ctx, func(ctx context.Context) error {
		added, err = s.projects.AddLabeler(ctx, project.ID, labeler.ID)
		if err != nil {
			return err
		}
		if !added {
			return nil
		}

		return s.events.Append(ctx, models.KindProject, project.ID,
			models.EventLabelerJoined, labeler.UserID, map[string]any{
				"labeler_id":     labeler.ID.String(),
				"access_code_id": found.ID.String(),
			})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("labeler joined project",
		zap.String("project_id", project.ID.String()),
		zap.String("labeler_id", labeler.ID.String()),
		zap.Bool("already_member", !added))

	return project, nil
}

func (s *membershipService) AssignLabeler(ctx context.Context, assignmentID, labelerID, actorID uuid.UUID) error {
	if err := s.ownership.EnsureScientistOwns(ctx, models.KindAssignment, assignmentID); err != nil {
		return err
	}

	assignment, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		return err
	}

	subject, err := s.subjects.Get(ctx, assignment.SubjectID)
	if err != nil {
		return err
	}

	onRoster, err := s.projects.HasLabeler(ctx, subject.ProjectID, labelerID)
	if err != nil {
		return err
	}
	if !onRoster {
		return fmt.Errorf("labeler is not on the project roster: %w", apperrors.ErrConflict)
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		added, err := s.assignments.AddLabeler(ctx, assignmentID, labelerID)
		if err != nil {
			return err
		}
		if !added {
			return nil
		}

		return s.events.Append(ctx, models.KindAssignment, assignmentID,
			models.EventLabelerAssigned, actorID, map[string]any{
				"labeler_id": labelerID.String(),
			})
	})
}

func (s *membershipService) UnassignLabeler(ctx context.Context, assignmentID, labelerID, actorID uuid.UUID) error {
	if err := s.ownership.EnsureScientistOwns(ctx, models.KindAssignment, assignmentID); err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		removed, err := s.assignments.RemoveLabeler(ctx, assignmentID, labelerID)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}

		return s.events.Append(ctx, models.KindAssignment, assignmentID,
			models.EventLabelerUnassigned, actorID, map[string]any{
				"labeler_id": labelerID.String(),
			})
	})
}

func (s *membershipService) UnassignAllLabelers(ctx context.Context, projectID, actorID uuid.UUID) error {
	if err := s.ownership.EnsureScientistOwns(ctx, models.KindProject, projectID); err != nil {
		return err
	}

	var removed int64
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.assignments.RemoveAllByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return nil
		}

		return s.events.Append(ctx, models.KindProject, projectID,
			models.EventLabelersCleared, actorID, map[string]any{
				"removed": removed,
			})
	})
	if err != nil {
		return err
	}

	s.logger.Info("assignment rosters cleared",
		zap.String("project_id", projectID.String()),
		zap.Int64("removed", removed))

	return nil
}

func (s *membershipService) DistributeLabelersEqually(ctx context.Context, projectID, actorID uuid.UUID) error {
	if err := s.ownership.EnsureScientistOwns(ctx, models.KindProject, projectID); err != nil {
		return err
	}

	roster, err := s.projects.RosterLabelerIDs(ctx, projectID)
	if err != nil {
		return err
	}

	assignments, err := s.assignments.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}

	if len(roster) == 0 || len(assignments) == 0 {
		return nil
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		for i, labelerID := range roster {
			target := assignments[i%len(assignments)]

			added, err := s.assignments.AddLabeler(ctx, target.ID, labelerID)
			if err != nil {
				return err
			}
			if !added {
				continue
			}

			if err := s.events.Append(ctx, models.KindAssignment, target.ID,
				models.EventLabelerAssigned, actorID, map[string]any{
					"labeler_id":  labelerID.String(),
					"distributed": true,
				}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("labelers distributed across assignments",
		zap.String("project_id", projectID.String()),
		zap.Int("roster_size", len(roster)),
		zap.Int("assignments", len(assignments)))

	return nil
}

// Ensure membershipService implements MembershipService at compile time.
var _ MembershipService = (*membershipService)(nil)
