package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
)

// EventRepository defines the interface for the domain event outbox.
type EventRepository interface {
	Create(ctx context.Context, event *models.DomainEvent) error
	// ListPending returns undelivered events oldest first, up to limit.
	ListPending(ctx context.Context, limit int) ([]*models.DomainEvent, error)
	// MarkDelivered stamps the events delivered so the dispatcher does not
	// pick them up again.
	MarkDelivered(ctx context.Context, ids []uuid.UUID) error
	ListByEntity(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) ([]*models.DomainEvent, error)
}

type eventRepository struct{}

// NewEventRepository creates a new domain event repository.
func NewEventRepository() EventRepository {
	return &eventRepository{}
}

func (r *eventRepository) Create(ctx context.Context, event *models.DomainEvent) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	query := `
		INSERT INTO domain_events (id, entity_kind, entity_id, kind, actor_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := scope.Conn.QueryRow(ctx, query,
		event.ID, event.EntityKind, event.EntityID, event.Kind, event.ActorID, event.Payload).
		Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create domain event: %w", err)
	}

	return nil
}

func (r *eventRepository) ListPending(ctx context.Context, limit int) ([]*models.DomainEvent, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, entity_kind, entity_id, kind, actor_id, payload, created_at, delivered_at
		FROM domain_events
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1`

	rows, err := scope.Conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}
	defer rows.Close()

	var events []*models.DomainEvent
	for rows.Next() {
		var e models.DomainEvent
		err := rows.Scan(&e.ID, &e.EntityKind, &e.EntityID, &e.Kind, &e.ActorID,
			&e.Payload, &e.CreatedAt, &e.DeliveredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain event: %w", err)
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

func (r *eventRepository) MarkDelivered(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `UPDATE domain_events SET delivered_at = now() WHERE id = ANY($1) AND delivered_at IS NULL`

	if _, err := scope.Conn.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to mark events delivered: %w", err)
	}

	return nil
}

func (r *eventRepository) ListByEntity(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) ([]*models.DomainEvent, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, entity_kind, entity_id, kind, actor_id, payload, created_at, delivered_at
		FROM domain_events
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at`

	rows, err := scope.Conn.Query(ctx, query, kind, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entity events: %w", err)
	}
	defer rows.Close()

	var events []*models.DomainEvent
	for rows.Next() {
		var e models.DomainEvent
		err := rows.Scan(&e.ID, &e.EntityKind, &e.EntityID, &e.Kind, &e.ActorID,
			&e.Payload, &e.CreatedAt, &e.DeliveredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain event: %w", err)
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

// Ensure eventRepository implements EventRepository at compile time.
var _ EventRepository = (*eventRepository)(nil)
