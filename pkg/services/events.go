package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

// DomainEventService records domain events into the outbox table.
//
// Events are append-only and never recorded speculatively: callers append
// only after the precondition of the transition the event documents has been
// verified. Because repositories run on the request's pinned connection, an
// append made inside a caller's transaction commits or rolls back with it.
// Draining is the dispatcher's job; this service never clears events.
type DomainEventService interface {
	Append(ctx context.Context, entityKind models.EntityKind, entityID uuid.UUID,
		eventKind string, actorID uuid.UUID, payload map[string]any) error
	ListByEntity(ctx context.Context, entityKind models.EntityKind, entityID uuid.UUID) ([]*models.DomainEvent, error)
}

type domainEventService struct {
	events repositories.EventRepository
	logger *zap.Logger
}

// NewDomainEventService creates a new domain event service.
func NewDomainEventService(events repositories.EventRepository, logger *zap.Logger) DomainEventService {
	return &domainEventService{
		events: events,
		logger: logger,
	}
}

func (s *domainEventService) Append(ctx context.Context, entityKind models.EntityKind, entityID uuid.UUID,
	eventKind string, actorID uuid.UUID, payload map[string]any) error {

	event := &models.DomainEvent{
		EntityKind: entityKind,
		EntityID:   entityID,
		Kind:       eventKind,
		ActorID:    actorID,
		Payload:    payload,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to append domain event: %w", err)
	}

	s.logger.Debug("domain event appended",
		zap.String("entity_kind", string(entityKind)),
		zap.String("entity_id", entityID.String()),
		zap.String("kind", eventKind))

	return nil
}

func (s *domainEventService) ListByEntity(ctx context.Context, entityKind models.EntityKind, entityID uuid.UUID) ([]*models.DomainEvent, error) {
	return s.events.ListByEntity(ctx, entityKind, entityID)
}

// Ensure domainEventService implements DomainEventService at compile time.
var _ DomainEventService = (*domainEventService)(nil)
