package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the dispatch state of an outbox row.
//
//	PENDING -> PROCESSING -> SENT
//	               |
//	               +-> FAILED -> PROCESSING ... -> DEAD -> PENDING (manual retry)
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	maxBackoffShift    = 10
)

// ErrNotDead is returned when a manual retry targets a row that is still live.
var ErrNotDead = errors.New("can only retry dead letter entries")

// OutboxEntry is one event waiting to leave the process. It commits with the state
// change that raised the event, which is what makes delivery at-least-once.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry queues payload, the serialized form of evt.
func NewOutboxEntry(evt DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      evt.TenantID(),
		EventID:       evt.EventID(),
		EventType:     evt.EventType(),
		AggregateID:   evt.AggregateID(),
		AggregateType: evt.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RetryBackoff is the wait after the attempt-th failure: one base period, doubling
// per failure, capped at 2^10 periods.
func RetryBackoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return DefaultBaseBackoff << uint(shift)
}

// MarkSent records a successful dispatch.
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed counts a failed dispatch. The row is rescheduled after RetryBackoff, or
// parked as DEAD once MaxRetries failures have been seen.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	next := now.Add(RetryBackoff(e.RetryCount))
	e.Status = OutboxStatusFailed
	e.NextRetryAt = &next
}

// ResetForRetry returns a DEAD row to the queue with a fresh retry count.
func (e *OutboxEntry) ResetForRetry() error {
	if !e.IsDead() {
		return ErrNotDead
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists outbox rows.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// ClaimPending moves up to limit due rows (PENDING, or FAILED with NextRetryAt
	// before now) to PROCESSING in one statement and returns them.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteSentOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
