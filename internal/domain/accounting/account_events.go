package accounting

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type names
const (
	AggregateTypeAccount      = "Account"
	AggregateTypeJournalEntry = "JournalEntry"
)

// Outbound event types
const (
	EventTypeAccountCreated = "accounting.account.created.v1"
	EventTypeAccountMerged  = "accounting.account.merged.v1"
	EventTypeJournalPosted  = "accounting.journal.posted.v1"
	EventTypeJournalVoided  = "accounting.journal.voided.v1"
)

// AccountCreatedEvent is published when an account is added to the chart
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID       uuid.UUID   `json:"account_id"`
	AccountNumber   string      `json:"account_number"`
	Name            string      `json:"name"`
	AccountType     AccountType `json:"account_type"`
	ParentAccountID *uuid.UUID  `json:"parent_account_id,omitempty"`
}

// NewAccountCreatedEvent creates an AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountCreated, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		AccountNumber:   a.AccountNumber,
		Name:            a.Name,
		AccountType:     a.AccountType,
		ParentAccountID: a.ParentAccountID,
	}
}

// AccountMergedEvent is published when a source account is retired into a target
type AccountMergedEvent struct {
	shared.BaseDomainEvent
	SourceAccountID uuid.UUID `json:"source_account_id"`
	SourceNumber    string    `json:"source_account_number"`
	TargetAccountID uuid.UUID `json:"target_account_id"`
	MergedAt        time.Time `json:"merged_at"`
}

// NewAccountMergedEvent creates an AccountMergedEvent
func NewAccountMergedEvent(source *Account, targetID uuid.UUID, at time.Time) *AccountMergedEvent {
	return &AccountMergedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountMerged, AggregateTypeAccount, source.ID, source.TenantID),
		SourceAccountID: source.ID,
		SourceNumber:    source.AccountNumber,
		TargetAccountID: targetID,
		MergedAt:        at,
	}
}
