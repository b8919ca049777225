package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

// ProjectService manages project records. Writes are gated on ownership;
// reads are allowed to the owner, admins, and roster labelers.
type ProjectService interface {
	Create(ctx context.Context, name, description string) (*models.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, id uuid.UUID, name, description string) (*models.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectService struct {
	access    AccessContextService
	ownership OwnershipService
	projects  repositories.ProjectRepository
	events    DomainEventService
	logger    *zap.Logger
	inTx      txFunc
}

// NewProjectService creates a new project service.
func NewProjectService(
	access AccessContextService,
	ownership OwnershipService,
	projects repositories.ProjectRepository,
	events DomainEventService,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		access:    access,
		ownership: ownership,
		projects:  projects,
		events:    events,
		logger:    logger,
		inTx:      database.WithTx,
	}
}

// Create makes a new project owned by the calling scientist. Admins without
// a scientist record cannot own projects, so the scientist role is required.
func (s *projectService) Create(ctx context.Context, name, description string) (*models.Project, error) {
	access, err := s.access.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if !access.IsScientist {
		return nil, fmt.Errorf("only scientists can create projects: %w", apperrors.ErrForbidden)
	}

	project := &models.Project{
		Name:        name,
		Description: description,
		CreatedBy:   access.Scientist.ID,
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.projects.Create(ctx, project); err != nil {
			return err
		}
		return s.events.Append(ctx, models.KindProject, project.ID,
			models.EventProjectCreated, access.UserID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("scientist_id", access.Scientist.ID.String()))

	return project, nil
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	access, err := s.access.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if access.IsAdmin {
		return project, nil
	}
	if access.IsScientist && project.CreatedBy == access.Scientist.ID {
		return project, nil
	}
	if access.IsLabeler {
		member, err := s.projects.HasLabeler(ctx, id, access.Labeler.ID)
		if err != nil {
			return nil, err
		}
		if member {
			return project, nil
		}
	}

	return nil, fmt.Errorf("caller has no access to project %s: %w", id, apperrors.ErrForbidden)
}

func (s *projectService) Update(ctx context.Context, id uuid.UUID, name, description string) (*models.Project, error) {
	if err := s.ownership.EnsureScientistOwns(ctx, models.KindProject, id); err != nil {
		return nil, err
	}

	access, err := s.access.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Name = name
	project.Description = description

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.projects.Update(ctx, project); err != nil {
			return err
		}
		return s.events.Append(ctx, models.KindProject, project.ID,
			models.EventProjectUpdated, access.UserID, nil)
	})
	if err != nil {
		return nil, err
	}

	return project, nil
}

func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.ownership.EnsureScientistOwns(ctx, models.KindProject, id); err != nil {
		return err
	}

	return s.projects.SoftDelete(ctx, id)
}

// Ensure projectService implements ProjectService at compile time.
var _ ProjectService = (*projectService)(nil)
