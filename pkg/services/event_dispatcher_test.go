package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/models"
)

// failingDeliverer fails on the event kinds in failOn and records the order
// of successful deliveries.
type failingDeliverer struct {
	failOn    map[string]bool
	delivered []string
}

func (d *failingDeliverer) Deliver(_ context.Context, event *models.DomainEvent) error {
	if d.failOn[event.Kind] {
		return errors.New("destination unavailable")
	}
	d.delivered = append(d.delivered, event.Kind)
	return nil
}

func newTestDispatcher(deliverer Deliverer, workers int) *EventDispatcher {
	return &EventDispatcher{
		deliverer: deliverer,
		logger:    zap.NewNop(),
		workers:   workers,
	}
}

func testEvent(entityID uuid.UUID, kind string) *models.DomainEvent {
	return &models.DomainEvent{
		ID:         uuid.New(),
		EntityKind: models.KindProject,
		EntityID:   entityID,
		Kind:       kind,
		ActorID:    uuid.New(),
	}
}

func TestShardOf_StablePerEntity(t *testing.T) {
	d := newTestDispatcher(&failingDeliverer{}, 4)

	for i := 0; i < 50; i++ {
		entityID := uuid.New()
		shard := d.shardOf(entityID)
		assert.Equal(t, shard, d.shardOf(entityID))
		assert.GreaterOrEqual(t, shard, 0)
		assert.Less(t, shard, d.workers)
	}
}

func TestShardOf_SingleWorker(t *testing.T) {
	d := newTestDispatcher(&failingDeliverer{}, 1)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, d.shardOf(uuid.New()))
	}
}

func TestDeliverShard_InOrder(t *testing.T) {
	deliverer := &failingDeliverer{}
	d := newTestDispatcher(deliverer, 1)
	entityID := uuid.New()

	shard := []*models.DomainEvent{
		testEvent(entityID, "first"),
		testEvent(entityID, "second"),
		testEvent(entityID, "third"),
	}

	delivered := d.deliverShard(context.Background(), shard)

	require.Len(t, delivered, 3)
	assert.Equal(t, []string{"first", "second", "third"}, deliverer.delivered)
	for i, event := range shard {
		assert.Equal(t, event.ID, delivered[i])
	}
}

func TestDeliverShard_StopsAtFirstFailure(t *testing.T) {
	deliverer := &failingDeliverer{failOn: map[string]bool{"second": true}}
	d := newTestDispatcher(deliverer, 1)
	entityID := uuid.New()

	shard := []*models.DomainEvent{
		testEvent(entityID, "first"),
		testEvent(entityID, "second"),
		testEvent(entityID, "third"),
	}

	delivered := d.deliverShard(context.Background(), shard)

	// The failed event and everything after it stay pending, so a retry
	// cannot reorder the entity's stream.
	require.Len(t, delivered, 1)
	assert.Equal(t, shard[0].ID, delivered[0])
	assert.Equal(t, []string{"first"}, deliverer.delivered)
}

func TestClaimEvent_WithoutRedis(t *testing.T) {
	d := newTestDispatcher(&failingDeliverer{}, 1)

	id := uuid.New()
	fresh, err := d.claimEvent(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, fresh)

	// No dedup store: the same event reads as fresh every time.
	fresh, err = d.claimEvent(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, fresh)
}
