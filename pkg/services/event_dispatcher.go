package services

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/config"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/metrics"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

const dedupTTL = 24 * time.Hour

// Deliverer hands a domain event to its destination (webhook, queue, log).
type Deliverer interface {
	Deliver(ctx context.Context, event *models.DomainEvent) error
}

// LogDeliverer writes events to the log. It is the default destination when
// no external delivery target is configured.
type LogDeliverer struct {
	Logger *zap.Logger
}

func (d *LogDeliverer) Deliver(_ context.Context, event *models.DomainEvent) error {
	d.Logger.Info("domain event",
		zap.String("entity_kind", string(event.EntityKind)),
		zap.String("entity_id", event.EntityID.String()),
		zap.String("kind", event.Kind),
		zap.String("actor_id", event.ActorID.String()))
	return nil
}

// EventDispatcher drains the domain event outbox. Each poll reads a batch of
// pending events, shards them by entity id so one entity's events stay in
// order, and delivers shards concurrently. Delivered events are stamped so
// they are never picked up again; failed events stay pending and are retried
// on a later poll.
//
// When Redis is configured, a per-event dedup key suppresses double delivery
// across dispatcher replicas that race on the same batch.
type EventDispatcher struct {
	db        *database.DB
	events    repositories.EventRepository
	deliverer Deliverer
	rdb       *redis.Client
	logger    *zap.Logger

	workers      int
	pollInterval time.Duration
	batchSize    int
}

// NewEventDispatcher creates a new event dispatcher. rdb may be nil.
func NewEventDispatcher(
	db *database.DB,
	events repositories.EventRepository,
	deliverer Deliverer,
	rdb *redis.Client,
	cfg *config.DispatcherConfig,
	logger *zap.Logger,
) *EventDispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &EventDispatcher{
		db:           db,
		events:       events,
		deliverer:    deliverer,
		rdb:          rdb,
		logger:       logger,
		workers:      workers,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
	}
}

// Run polls until ctx is cancelled.
func (d *EventDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.logger.Info("event dispatcher started",
		zap.Int("workers", d.workers),
		zap.Duration("poll_interval", d.pollInterval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("event dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.dispatchOnce(ctx); err != nil {
				d.logger.Error("dispatch cycle failed", zap.Error(err))
			}
		}
	}
}

// dispatchOnce drains one batch of pending events.
func (d *EventDispatcher) dispatchOnce(ctx context.Context) error {
	scope, err := d.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer scope.Close()

	ctx = database.SetScope(ctx, scope)

	pending, err := d.events.ListPending(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	shards := make([][]*models.DomainEvent, d.workers)
	for _, event := range pending {
		i := d.shardOf(event.EntityID)
		shards[i] = append(shards[i], event)
	}

	delivered := make([][]uuid.UUID, d.workers)
	var wg sync.WaitGroup
	for i, shard := range shards {
		if len(shard) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, shard []*models.DomainEvent) {
			defer wg.Done()
			delivered[i] = d.deliverShard(ctx, shard)
		}(i, shard)
	}
	wg.Wait()

	var done []uuid.UUID
	for _, ids := range delivered {
		done = append(done, ids...)
	}

	if err := d.events.MarkDelivered(ctx, done); err != nil {
		return err
	}

	d.logger.Debug("dispatch cycle complete",
		zap.Int("pending", len(pending)),
		zap.Int("delivered", len(done)))

	return nil
}

// deliverShard delivers a shard in order, stopping at the first failure so a
// later event for the same entity never overtakes an undelivered earlier one.
func (d *EventDispatcher) deliverShard(ctx context.Context, shard []*models.DomainEvent) []uuid.UUID {
	var delivered []uuid.UUID
	for _, event := range shard {
		fresh, err := d.claimEvent(ctx, event.ID)
		if err != nil {
			d.logger.Warn("dedup check failed, delivering anyway",
				zap.String("event_id", event.ID.String()), zap.Error(err))
			fresh = true
		}
		if !fresh {
			delivered = append(delivered, event.ID)
			continue
		}

		if err := d.deliverer.Deliver(ctx, event); err != nil {
			metrics.EventsDeliveryFailures.Inc()
			d.logger.Warn("event delivery failed",
				zap.String("event_id", event.ID.String()), zap.Error(err))
			return delivered
		}

		metrics.EventsDelivered.Inc()
		delivered = append(delivered, event.ID)
	}
	return delivered
}

// claimEvent reports whether this dispatcher is the first to touch the
// event. Without Redis every event reads as fresh.
func (d *EventDispatcher) claimEvent(ctx context.Context, id uuid.UUID) (bool, error) {
	if d.rdb == nil {
		return true, nil
	}
	return d.rdb.SetNX(ctx, "dedup:event:"+id.String(), 1, dedupTTL).Result()
}

func (d *EventDispatcher) shardOf(entityID uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(entityID[:])
	return int(h.Sum32() % uint32(d.workers))
}
