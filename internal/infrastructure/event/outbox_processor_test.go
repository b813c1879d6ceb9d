package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProcessorFixture(t *testing.T) (*OutboxProcessor, *GormOutboxRepository, *InMemoryEventBus) {
	t.Helper()
	repo := NewGormOutboxRepository(newTestDB(t))
	bus := NewInMemoryEventBus(zap.NewNop())
	processor := NewOutboxProcessor(repo, bus, newTestSerializer(), OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: 10 * time.Millisecond,
	}, zap.NewNop())
	return processor, repo, bus
}

func queue(t *testing.T, repo *GormOutboxRepository, event shared.DomainEvent) *shared.OutboxEntry {
	t.Helper()
	payload, err := newTestSerializer().Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(event, payload)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxProcessor_DispatchesPendingEntries(t *testing.T) {
	processor, repo, bus := newProcessorFixture(t)
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)
	entry := queue(t, repo, newTestEvent("TestEvent", uuid.New()))

	assert.Equal(t, 1, processor.ProcessBatch(context.Background()))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, entry.EventID, handler.getHandled()[0].EventID())
	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestOutboxProcessor_HandlerFailureSchedulesRetry(t *testing.T) {
	processor, repo, bus := newProcessorFixture(t)
	handler := newTestHandler("TestEvent")
	handler.setError(errors.New("database is locked"))
	bus.Subscribe(handler)
	entry := queue(t, repo, newTestEvent("TestEvent", uuid.New()))

	processor.ProcessBatch(context.Background())

	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "database is locked")
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))

	assert.Zero(t, processor.ProcessBatch(context.Background()), "not due yet")
}

func TestOutboxProcessor_UnknownEventTypeFails(t *testing.T) {
	processor, repo, _ := newProcessorFixture(t)
	entry := shared.NewOutboxEntry(newTestEvent("payroll.run.v1", uuid.New()), []byte(`{}`))
	entry.MaxRetries = 1
	require.NoError(t, repo.Save(context.Background(), entry))

	processor.ProcessBatch(context.Background())

	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusDead, stored.Status)
	assert.Contains(t, stored.LastError, "unknown event type")
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	processor, repo, bus := newProcessorFixture(t)
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)
	queue(t, repo, newTestEvent("TestEvent", uuid.New()))

	require.NoError(t, processor.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(handler.getHandled()) == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(ctx))
}

func TestDefaultOutboxProcessorConfig(t *testing.T) {
	config := DefaultOutboxProcessorConfig()

	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.True(t, config.CleanupEnabled)
	assert.Equal(t, 7*24*time.Hour, config.CleanupRetention)
}
