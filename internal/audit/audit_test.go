package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/greatwhitesecurity/opshub/internal/audit"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memoryAudit struct {
	mu        sync.Mutex
	created   []events.LinkCreated
	resolved  []events.LinkResolved
	responded []events.AvailabilityResponded
}

func (m *memoryAudit) SaveLinkCreated(_ context.Context, e *events.LinkCreated) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created = append(m.created, *e)

	return nil
}

func (m *memoryAudit) SaveLinkResolved(_ context.Context, e *events.LinkResolved) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolved = append(m.resolved, *e)

	return nil
}

func (m *memoryAudit) SaveAvailabilityResponded(_ context.Context, e *events.AvailabilityResponded) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responded = append(m.responded, *e)

	return nil
}

func (m *memoryAudit) counts() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.created), len(m.resolved), len(m.responded)
}

func TestConsumers(t *testing.T) {
	logger := zap.NewNop()
	channel := gochannel.NewGoChannel(gochannel.Config{}, messaging.NewZapLogger(logger))
	store := &memoryAudit{}

	group := messaging.NewConsumerGroup(channel, logger)
	group.Add(audit.Consumers(channel, store, logger)...)
	require.NoError(t, group.Start(context.Background()))

	t.Cleanup(func() { _ = group.Shutdown() })

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, messaging.NewPublishFunc[events.LinkCreated](channel, events.TopicLinkCreated)(
		ctx, &events.LinkCreated{Code: "AbC234", Target: "https://example.com", CreatedAt: now}))
	require.NoError(t, messaging.NewPublishFunc[events.LinkResolved](channel, events.TopicLinkResolved)(
		ctx, &events.LinkResolved{Code: "AbC234", ResolvedAt: now}))
	require.NoError(t, messaging.NewPublishFunc[events.AvailabilityResponded](channel, events.TopicAvailabilityResponded)(
		ctx, &events.AvailabilityResponded{EntityID: "recJob", ResponderID: "recTech", Answer: "YES", Source: "link"}))

	assert.Eventually(t, func() bool {
		created, resolved, responded := store.counts()

		return created == 1 && resolved == 1 && responded == 1
	}, 2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()

	assert.Equal(t, "https://example.com", store.created[0].Target)
	assert.True(t, now.Equal(store.resolved[0].ResolvedAt))
	assert.Equal(t, "YES", store.responded[0].Answer)
}

func TestLogStore(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := audit.NewLogStore(zap.New(core))
	ctx := context.Background()

	require.NoError(t, store.SaveLinkCreated(ctx, &events.LinkCreated{Code: "AbC234", EntityID: "recJob"}))
	require.NoError(t, store.SaveLinkResolved(ctx, &events.LinkResolved{Code: "AbC234"}))
	require.NoError(t, store.SaveAvailabilityResponded(ctx, &events.AvailabilityResponded{
		EntityID: "recJob", ResponderID: "recTech", Answer: "NO", Source: "sms",
	}))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "recJob", entries[0].ContextMap()["entity_id"])
	assert.Equal(t, "link resolved", entries[1].Message)
	assert.Equal(t, "sms", entries[2].ContextMap()["source"])
}
