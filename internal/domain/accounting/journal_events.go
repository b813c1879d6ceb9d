package accounting

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalPostedEvent is published when an entry reaches posted status
type JournalPostedEvent struct {
	shared.BaseDomainEvent
	EntryID           uuid.UUID       `json:"entry_id"`
	EntryNumber       string          `json:"entry_number"`
	SourceModule      SourceModule    `json:"source_module"`
	SourceReferenceID string          `json:"source_reference_id"`
	PostingPeriod     string          `json:"posting_period"`
	Currency          string          `json:"currency"`
	Total             decimal.Decimal `json:"total"`
	LineCount         int             `json:"line_count"`
}

// NewJournalPostedEvent creates a JournalPostedEvent
func NewJournalPostedEvent(e *JournalEntry) *JournalPostedEvent {
	return &JournalPostedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeJournalPosted, AggregateTypeJournalEntry, e.ID, e.TenantID),
		EntryID:           e.ID,
		EntryNumber:       e.EntryNumber,
		SourceModule:      e.SourceModule,
		SourceReferenceID: e.SourceReferenceID,
		PostingPeriod:     e.PostingPeriod,
		Currency:          e.Currency,
		Total:             e.TotalDebits(),
		LineCount:         len(e.Lines),
	}
}

// JournalVoidedEvent is published when an entry is offset by a reversal
type JournalVoidedEvent struct {
	shared.BaseDomainEvent
	EntryID         uuid.UUID `json:"entry_id"`
	ReversalEntryID uuid.UUID `json:"reversal_entry_id"`
	Reason          string    `json:"reason"`
	VoidedAt        time.Time `json:"voided_at"`
}

// NewJournalVoidedEvent creates a JournalVoidedEvent
func NewJournalVoidedEvent(e *JournalEntry, reversal *JournalEntry) *JournalVoidedEvent {
	var at time.Time
	if e.VoidedAt != nil {
		at = *e.VoidedAt
	}
	return &JournalVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalVoided, AggregateTypeJournalEntry, e.ID, e.TenantID),
		EntryID:         e.ID,
		ReversalEntryID: reversal.ID,
		Reason:          e.VoidReason,
		VoidedAt:        at,
	}
}
