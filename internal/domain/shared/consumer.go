package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ConsumptionStatus is the state of one (event, consumer) pair in the consumer ledger.
type ConsumptionStatus string

const (
	ConsumptionProcessing   ConsumptionStatus = "processing"
	ConsumptionProcessed    ConsumptionStatus = "processed"
	ConsumptionFailed       ConsumptionStatus = "failed"
	ConsumptionDeadLettered ConsumptionStatus = "dead_lettered"
)

// DefaultConsumerMaxRetries is used when a tenant has no configured retry budget.
const DefaultConsumerMaxRetries = 3

// ProcessedEvent is a consumer ledger row. The unique (EventID, ConsumerName) key is the
// compare-and-set gate that turns at-least-once delivery into exactly-once effect.
type ProcessedEvent struct {
	ID           uuid.UUID
	EventID      uuid.UUID
	ConsumerName string
	TenantID     uuid.UUID
	EventType    string
	Status       ConsumptionStatus
	Attempts     int
	LastError    string
	// History holds one entry per failed attempt
	History      []DeadLetterAttempt
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewProcessedEvent creates a ledger row for the first delivery attempt.
func NewProcessedEvent(event DomainEvent, consumer string) *ProcessedEvent {
	now := time.Now()
	return &ProcessedEvent{
		ID:           uuid.New(),
		EventID:      event.EventID(),
		ConsumerName: consumer,
		TenantID:     event.TenantID(),
		EventType:    event.EventType(),
		Status:       ConsumptionProcessing,
		Attempts:     1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// RecordFailure appends the current attempt's error to the history.
func (p *ProcessedEvent) RecordFailure(errMsg string) {
	now := time.Now()
	p.Status = ConsumptionFailed
	p.LastError = errMsg
	p.History = append(p.History, DeadLetterAttempt{Attempt: p.Attempts, Error: errMsg, At: now})
	p.UpdatedAt = now
}

// IsTerminal reports whether the pair needs no further delivery.
func (p *ProcessedEvent) IsTerminal() bool {
	return p.Status == ConsumptionProcessed || p.Status == ConsumptionDeadLettered
}

// DeadLetterStatus tracks manual resolution of a quarantined event.
type DeadLetterStatus string

const (
	DeadLetterOpen     DeadLetterStatus = "open"
	DeadLetterReplayed DeadLetterStatus = "replayed"
	DeadLetterResolved DeadLetterStatus = "resolved"
)

// DeadLetterAttempt is one recorded failure in a dead letter's history.
type DeadLetterAttempt struct {
	Attempt int       `json:"attempt"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
}

// DeadLetter is an event quarantined after exhausting its retry budget.
type DeadLetter struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	ConsumerName   string
	TenantID       uuid.UUID
	EventType      string
	Payload        []byte
	ErrorMessage   string
	ErrorStack     string
	Attempts       int
	History        []DeadLetterAttempt
	Status         DeadLetterStatus
	ResolvedBy     *uuid.UUID
	ResolutionNote string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewDeadLetter quarantines an event with its final error.
func NewDeadLetter(ledger *ProcessedEvent, payload []byte, errMsg, stack string, history []DeadLetterAttempt) *DeadLetter {
	now := time.Now()
	return &DeadLetter{
		ID:           uuid.New(),
		EventID:      ledger.EventID,
		ConsumerName: ledger.ConsumerName,
		TenantID:     ledger.TenantID,
		EventType:    ledger.EventType,
		Payload:      payload,
		ErrorMessage: errMsg,
		ErrorStack:   stack,
		Attempts:     ledger.Attempts,
		History:      history,
		Status:       DeadLetterOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkReplayed records a manual replay.
func (d *DeadLetter) MarkReplayed(by uuid.UUID) error {
	if d.Status != DeadLetterOpen {
		return errors.New("only open dead letters can be replayed")
	}
	now := time.Now()
	d.Status = DeadLetterReplayed
	d.ResolvedBy = &by
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}

// Resolve closes the dead letter without replaying it.
func (d *DeadLetter) Resolve(by uuid.UUID, note string) error {
	if d.Status == DeadLetterResolved {
		return errors.New("dead letter already resolved")
	}
	now := time.Now()
	d.Status = DeadLetterResolved
	d.ResolvedBy = &by
	d.ResolutionNote = note
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}

// ConsumerLedger persists consumer ledger rows and dead letters.
type ConsumerLedger interface {
	// Claim inserts a processing row for (event, consumer). It returns the row and true when
	// this call created it, or the existing row and false.
	Claim(ctx context.Context, entry *ProcessedEvent) (*ProcessedEvent, bool, error)
	// BeginRetry moves a failed row back to processing and increments Attempts.
	BeginRetry(ctx context.Context, entry *ProcessedEvent) error
	MarkProcessed(ctx context.Context, entry *ProcessedEvent) error
	MarkFailed(ctx context.Context, entry *ProcessedEvent, errMsg string) error
	// DeadLetter writes the dead letter and marks the ledger row dead_lettered atomically.
	DeadLetter(ctx context.Context, entry *ProcessedEvent, letter *DeadLetter) error
	// Reset deletes the ledger row so the event can be delivered again.
	Reset(ctx context.Context, eventID uuid.UUID, consumer string) error
}

// DeadLetterFilter narrows dead letter listings.
type DeadLetterFilter struct {
	TenantID     uuid.UUID
	Status       DeadLetterStatus
	ConsumerName string
	Page         int
	PageSize     int
}

// DeadLetterRepository reads and updates dead letters.
type DeadLetterRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*DeadLetter, error)
	List(ctx context.Context, filter DeadLetterFilter) ([]*DeadLetter, int64, error)
	Update(ctx context.Context, letter *DeadLetter) error
}
