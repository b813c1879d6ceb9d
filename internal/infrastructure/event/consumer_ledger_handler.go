package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	applog "github.com/erp/posting/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultStaleClaimAfter is how long a processing row may sit before another delivery
// may take it over
const DefaultStaleClaimAfter = 5 * time.Minute

// RetryBudget returns how many attempts a tenant's events get before dead lettering
type RetryBudget interface {
	RetryBudget(ctx context.Context, tenantID uuid.UUID) int
}

// FixedRetryBudget is a RetryBudget that ignores the tenant
type FixedRetryBudget int

// RetryBudget returns the fixed budget
func (b FixedRetryBudget) RetryBudget(context.Context, uuid.UUID) int { return int(b) }

// DeadLetterRecorder receives dead letter telemetry
type DeadLetterRecorder interface {
	RecordDeadLetter(ctx context.Context, tenantID uuid.UUID, consumer, eventType string)
}

// ConsumerMetrics tracks consumer ledger statistics
type ConsumerMetrics struct {
	EventsProcessed    atomic.Int64
	EventsDuplicate    atomic.Int64
	EventsFailed       atomic.Int64
	EventsDeadLettered atomic.Int64
}

// Stats returns a snapshot of the current metrics
func (m *ConsumerMetrics) Stats() ConsumerStats {
	return ConsumerStats{
		EventsProcessed:    m.EventsProcessed.Load(),
		EventsDuplicate:    m.EventsDuplicate.Load(),
		EventsFailed:       m.EventsFailed.Load(),
		EventsDeadLettered: m.EventsDeadLettered.Load(),
	}
}

// ConsumerStats is a snapshot of consumer metrics
type ConsumerStats struct {
	EventsProcessed    int64 `json:"events_processed"`
	EventsDuplicate    int64 `json:"events_duplicate"`
	EventsFailed       int64 `json:"events_failed"`
	EventsDeadLettered int64 `json:"events_dead_lettered"`
}

// ConsumerLedgerHandler wraps a named handler with the consumer ledger. Each
// (event id, consumer) pair is claimed once; redeliveries of processed or dead lettered
// events are acknowledged without running the handler. A handler that keeps failing
// is quarantined as a dead letter once the tenant's retry budget is spent.
type ConsumerLedgerHandler struct {
	handler    shared.NamedEventHandler
	ledger     shared.ConsumerLedger
	serializer *EventSerializer
	budget     RetryBudget
	recorder   DeadLetterRecorder
	staleAfter time.Duration
	logger     *zap.Logger
	metrics    *ConsumerMetrics
}

// ConsumerLedgerOption is a functional option for ConsumerLedgerHandler
type ConsumerLedgerOption func(*ConsumerLedgerHandler)

// WithRetryBudget sets the retry budget source
func WithRetryBudget(budget RetryBudget) ConsumerLedgerOption {
	return func(h *ConsumerLedgerHandler) {
		h.budget = budget
	}
}

// WithDeadLetterRecorder sets the dead letter telemetry sink
func WithDeadLetterRecorder(recorder DeadLetterRecorder) ConsumerLedgerOption {
	return func(h *ConsumerLedgerHandler) {
		h.recorder = recorder
	}
}

// WithStaleClaimAfter sets how long an in-flight claim blocks redeliveries
func WithStaleClaimAfter(d time.Duration) ConsumerLedgerOption {
	return func(h *ConsumerLedgerHandler) {
		h.staleAfter = d
	}
}

// WithConsumerMetrics sets the metrics collector
func WithConsumerMetrics(metrics *ConsumerMetrics) ConsumerLedgerOption {
	return func(h *ConsumerLedgerHandler) {
		h.metrics = metrics
	}
}

// NewConsumerLedgerHandler creates a ledger-guarded handler
func NewConsumerLedgerHandler(
	handler shared.NamedEventHandler,
	ledger shared.ConsumerLedger,
	serializer *EventSerializer,
	logger *zap.Logger,
	opts ...ConsumerLedgerOption,
) *ConsumerLedgerHandler {
	h := &ConsumerLedgerHandler{
		handler:    handler,
		ledger:     ledger,
		serializer: serializer,
		budget:     FixedRetryBudget(shared.DefaultConsumerMaxRetries),
		staleAfter: DefaultStaleClaimAfter,
		logger:     logger.With(zap.String(applog.FieldConsumer, handler.ConsumerName())),
		metrics:    &ConsumerMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the wrapped handler's event types
func (h *ConsumerLedgerHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// ConsumerName returns the wrapped handler's consumer name
func (h *ConsumerLedgerHandler) ConsumerName() string {
	return h.handler.ConsumerName()
}

// GetMetrics returns the metrics for this handler
func (h *ConsumerLedgerHandler) GetMetrics() *ConsumerMetrics {
	return h.metrics
}

// Handle claims the event in the ledger, runs the wrapped handler and records the outcome.
// A non-nil return asks the publisher to redeliver.
func (h *ConsumerLedgerHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	row, created, err := h.ledger.Claim(ctx, shared.NewProcessedEvent(event, h.handler.ConsumerName()))
	if err != nil {
		return fmt.Errorf("claim event %s: %w", event.EventID(), err)
	}

	if !created {
		switch {
		case row.IsTerminal():
			h.metrics.EventsDuplicate.Add(1)
			h.logger.Debug("duplicate delivery skipped",
				zap.String("event_id", event.EventID().String()),
				zap.String("event_type", event.EventType()),
				zap.String("status", string(row.Status)),
			)
			return nil
		case row.Status == shared.ConsumptionProcessing && time.Since(row.UpdatedAt) < h.staleAfter:
			// Another delivery holds the claim; the redelivery happens after it fails.
			h.logger.Debug("event in flight elsewhere, deferring",
				zap.String("event_id", event.EventID().String()),
			)
			return fmt.Errorf("event %s is being processed by another delivery", event.EventID())
		}
		if err := h.ledger.BeginRetry(ctx, row); err != nil {
			return fmt.Errorf("begin retry for event %s: %w", event.EventID(), err)
		}
	}

	stack, handleErr := h.invoke(ctx, event)
	if handleErr == nil {
		if err := h.ledger.MarkProcessed(ctx, row); err != nil {
			return fmt.Errorf("mark event %s processed: %w", event.EventID(), err)
		}
		h.metrics.EventsProcessed.Add(1)
		return nil
	}

	h.metrics.EventsFailed.Add(1)
	row.RecordFailure(handleErr.Error())
	budget := h.budget.RetryBudget(ctx, event.TenantID())

	if row.Attempts < budget {
		h.logger.Warn("event handling failed, will retry", append(applog.EventFields(event),
			zap.Int("attempt", row.Attempts),
			zap.Int("budget", budget),
			zap.Error(handleErr),
		)...)
		if err := h.ledger.MarkFailed(ctx, row, handleErr.Error()); err != nil {
			return errors.Join(handleErr, fmt.Errorf("mark event %s failed: %w", event.EventID(), err))
		}
		return handleErr
	}

	return h.deadLetter(ctx, event, row, handleErr, stack)
}

// Redeliver runs a quarantined event through the handler again with a fresh ledger row.
// Unlike Handle it never dead letters: a failure is recorded on the row and returned.
func (h *ConsumerLedgerHandler) Redeliver(ctx context.Context, event shared.DomainEvent) error {
	if err := h.ledger.Reset(ctx, event.EventID(), h.handler.ConsumerName()); err != nil {
		return fmt.Errorf("reset ledger row for event %s: %w", event.EventID(), err)
	}
	row, created, err := h.ledger.Claim(ctx, shared.NewProcessedEvent(event, h.handler.ConsumerName()))
	if err != nil {
		return fmt.Errorf("claim event %s: %w", event.EventID(), err)
	}
	if !created {
		return fmt.Errorf("event %s was claimed by a concurrent delivery", event.EventID())
	}

	_, handleErr := h.invoke(ctx, event)
	if handleErr != nil {
		h.metrics.EventsFailed.Add(1)
		row.RecordFailure(handleErr.Error())
		if err := h.ledger.MarkFailed(ctx, row, handleErr.Error()); err != nil {
			return errors.Join(handleErr, err)
		}
		return handleErr
	}
	if err := h.ledger.MarkProcessed(ctx, row); err != nil {
		return fmt.Errorf("mark event %s processed: %w", event.EventID(), err)
	}
	h.metrics.EventsProcessed.Add(1)
	h.logger.Info("event redelivered",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)
	return nil
}

func (h *ConsumerLedgerHandler) deadLetter(ctx context.Context, event shared.DomainEvent, row *shared.ProcessedEvent, cause error, stack string) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		payload = nil
		h.logger.Error("failed to serialize dead letter payload",
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
	}
	letter := shared.NewDeadLetter(row, payload, cause.Error(), stack, row.History)
	if err := h.ledger.DeadLetter(ctx, row, letter); err != nil {
		return errors.Join(cause, fmt.Errorf("dead letter event %s: %w", event.EventID(), err))
	}

	h.metrics.EventsDeadLettered.Add(1)
	if h.recorder != nil {
		h.recorder.RecordDeadLetter(ctx, event.TenantID(), h.handler.ConsumerName(), event.EventType())
	}
	h.logger.Error("event dead lettered", append(applog.EventFields(event),
		zap.String("dead_letter_id", letter.ID.String()),
		zap.Int("attempts", row.Attempts),
		zap.Error(cause),
	)...)
	return nil
}

// invoke runs the wrapped handler, turning a panic into an error with its stack
func (h *ConsumerLedgerHandler) invoke(ctx context.Context, event shared.DomainEvent) (stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
			stack = string(debug.Stack())
		}
	}()
	if err := h.handler.Handle(ctx, event); err != nil {
		return errorChain(err), err
	}
	return "", nil
}

// errorChain lists the wrapped causes of err, outermost first
func errorChain(err error) string {
	var parts []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		parts = append(parts, fmt.Sprintf("%T: %s", e, e.Error()))
	}
	return strings.Join(parts, "\n")
}

// Ensure ConsumerLedgerHandler implements NamedEventHandler
var _ shared.NamedEventHandler = (*ConsumerLedgerHandler)(nil)
