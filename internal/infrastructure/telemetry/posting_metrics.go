package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics constructor gets no meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// PostingMetrics records the ledger's posting activity. It satisfies the application
// layer's PostingRecorder and the consumer ledger's DeadLetterRecorder.
type PostingMetrics struct {
	postingTotal     *Counter
	postingDuration  *Histogram
	unmappedTotal    *Counter
	roundingTotal    *Counter
	deadLetterTotal  *Counter
	outboxBacklog    *Gauge
	openDeadLetters  *Gauge
	criticalUnmapped *Gauge
}

// NewPostingMetrics registers the posting instruments on meter.
func NewPostingMetrics(meter metric.Meter, logger *zap.Logger) (*PostingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PostingMetrics{}

	var err error
	if pm.postingTotal, err = NewCounter(meter,
		"gl_posting_total",
		"Posting attempts by source module and outcome",
		"{postings}",
	); err != nil {
		return nil, err
	}
	if pm.postingDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "gl_posting_duration_seconds",
		Description: "Time to validate and persist one journal entry",
		Unit:        "s",
		Boundaries:  PostingDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if pm.unmappedTotal, err = NewCounter(meter,
		"gl_unmapped_events_total",
		"Unmapped-event log rows written",
		"{rows}",
	); err != nil {
		return nil, err
	}
	if pm.roundingTotal, err = NewCounter(meter,
		"gl_rounding_lines_total",
		"Rounding lines added to balance a journal",
		"{lines}",
	); err != nil {
		return nil, err
	}
	if pm.deadLetterTotal, err = NewCounter(meter,
		"gl_dead_letters_total",
		"Events moved to the dead letter state after exhausting their retries",
		"{events}",
	); err != nil {
		return nil, err
	}
	if pm.outboxBacklog, err = NewGauge(meter,
		"gl_outbox_backlog",
		"Outbox rows not yet delivered",
		"{events}",
	); err != nil {
		return nil, err
	}
	if pm.openDeadLetters, err = NewGauge(meter,
		"gl_dead_letters_open",
		"Dead-lettered consumptions awaiting an operator",
		"{events}",
	); err != nil {
		return nil, err
	}
	if pm.criticalUnmapped, err = NewGauge(meter,
		"gl_unmapped_critical_rows",
		"Critical unmapped-event rows in the last day",
		"{rows}",
	); err != nil {
		return nil, err
	}

	logger.Debug("Posting metrics registered")
	return pm, nil
}

// RecordPosting counts one posting attempt and its latency.
func (pm *PostingMetrics) RecordPosting(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, outcome string, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrSourceModule.String(string(source)),
		AttrOutcome.String(outcome),
	}
	pm.postingTotal.Inc(ctx, attrs...)
	pm.postingDuration.RecordDuration(ctx, elapsed, attrs...)
}

// RecordUnmapped counts one unmapped-event row.
func (pm *PostingMetrics) RecordUnmapped(ctx context.Context, tenantID uuid.UUID, entityType accounting.UnmappedEntityType, severity accounting.UnmappedSeverity) {
	pm.unmappedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEntityType.String(string(entityType)),
		AttrSeverity.String(string(severity)),
	)
}

// RecordRoundingLine counts a rounding line added by an adapter or by the validator.
func (pm *PostingMetrics) RecordRoundingLine(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, stage string) {
	pm.roundingTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrSourceModule.String(string(source)),
		AttrStage.String(stage),
	)
}

// RecordDeadLetter counts an event a consumer gave up on.
func (pm *PostingMetrics) RecordDeadLetter(ctx context.Context, tenantID uuid.UUID, consumer, eventType string) {
	pm.deadLetterTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrConsumer.String(consumer),
		AttrEventType.String(eventType),
	)
}

// RecordHealth publishes one tenant's ledger health snapshot.
func (pm *PostingMetrics) RecordHealth(ctx context.Context, tenantID uuid.UUID, h LedgerHealth) {
	tenant := AttrTenantID.String(tenantID.String())
	pm.outboxBacklog.Record(ctx, h.OutboxBacklog, tenant)
	pm.openDeadLetters.Record(ctx, h.OpenDeadLetters, tenant)
	pm.criticalUnmapped.Record(ctx, h.CriticalUnmapped, tenant)
}
