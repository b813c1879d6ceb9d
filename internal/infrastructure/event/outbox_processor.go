package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxProcessorConfig controls dispatch batching and retention of sent rows
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig polls every five seconds and keeps sent rows a week
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	d := DefaultOutboxProcessorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

// OutboxProcessor moves outbox rows onto the event bus. Rows are claimed with
// FOR UPDATE SKIP LOCKED, so any number of processors can share one table.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a processor. Zero BatchSize or PollInterval take the defaults.
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config.withDefaults(),
		logger:     logger.Named("outbox"),
	}
}

// Start launches the dispatch loop and, when enabled, the retention sweep
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.every(ctx, p.config.PollInterval, func(ctx context.Context) { p.ProcessBatch(ctx) })
	if p.config.CleanupEnabled && p.config.CleanupInterval > 0 {
		p.every(ctx, p.config.CleanupInterval, p.sweep)
	}
	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for the batch in flight, or for ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// ProcessBatch claims up to BatchSize due rows and dispatches each. It returns the
// number claimed, zero when nothing was due or the claim failed.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) int {
	claimed, err := p.repo.ClaimPending(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("claim outbox entries", zap.Error(err))
		return 0
	}
	for _, entry := range claimed {
		p.settle(ctx, entry, p.dispatch(ctx, entry))
	}
	return len(claimed)
}

func (p *OutboxProcessor) dispatch(ctx context.Context, entry *shared.OutboxEntry) error {
	evt, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// settle records the dispatch outcome on the row
func (p *OutboxProcessor) settle(ctx context.Context, entry *shared.OutboxEntry, dispatchErr error) {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", entry.TenantID.String()),
	)
	switch {
	case dispatchErr == nil:
		entry.MarkSent()
		log.Debug("outbox entry sent")
	default:
		entry.MarkFailed(dispatchErr.Error())
		if entry.IsDead() {
			log.Warn("outbox entry exhausted its retries",
				zap.String("aggregate_type", entry.AggregateType),
				zap.String("aggregate_id", entry.AggregateID.String()),
				zap.Int("retry_count", entry.RetryCount),
				zap.Error(dispatchErr),
			)
		} else {
			log.Error("outbox dispatch failed",
				zap.Int("retry_count", entry.RetryCount),
				zap.Timep("next_retry_at", entry.NextRetryAt),
				zap.Error(dispatchErr),
			)
		}
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("update outbox entry", zap.String("status", string(entry.Status)), zap.Error(err))
	}
}

func (p *OutboxProcessor) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentOlderThan(ctx, cutoff)
	switch {
	case err != nil:
		p.logger.Error("delete sent outbox entries", zap.Error(err))
	case deleted > 0:
		p.logger.Info("deleted sent outbox entries", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
