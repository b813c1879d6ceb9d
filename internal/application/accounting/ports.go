package accounting

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
)

// Posting outcome labels reported to metrics
const (
	OutcomePosted    = "posted"
	OutcomeDrafted   = "drafted"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeReversed  = "reversed"
	OutcomeFailed    = "failed"
)

// Rounding stages reported to metrics
const (
	RoundingStageAdapter   = "adapter"
	RoundingStageValidator = "validator"
)

// PostingRecorder receives posting telemetry. The telemetry package provides the
// OpenTelemetry implementation.
type PostingRecorder interface {
	RecordPosting(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, outcome string, elapsed time.Duration)
	RecordUnmapped(ctx context.Context, tenantID uuid.UUID, entityType accounting.UnmappedEntityType, severity accounting.UnmappedSeverity)
	RecordRoundingLine(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, stage string)
}

type nopRecorder struct{}

func (nopRecorder) RecordPosting(context.Context, uuid.UUID, accounting.SourceModule, string, time.Duration) {}
func (nopRecorder) RecordUnmapped(context.Context, uuid.UUID, accounting.UnmappedEntityType, accounting.UnmappedSeverity) {}
func (nopRecorder) RecordRoundingLine(context.Context, uuid.UUID, accounting.SourceModule, string) {}

// NopRecorder discards posting telemetry
func NopRecorder() PostingRecorder { return nopRecorder{} }

// SettingsCache is a read-through cache of tenant settings
type SettingsCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, bool)
	Set(ctx context.Context, settings *accounting.AccountingSettings)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) (*accounting.AccountingSettings, bool) { return nil, false }
func (noCache) Set(context.Context, *accounting.AccountingSettings)                   {}
func (noCache) Invalidate(context.Context, uuid.UUID)                                 {}
