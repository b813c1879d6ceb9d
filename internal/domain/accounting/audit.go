package accounting

import (
	"time"

	"github.com/google/uuid"
)

// AccountChangeAction names a structural change to an account
type AccountChangeAction string

const (
	ChangeCreated     AccountChangeAction = "created"
	ChangeUpdated     AccountChangeAction = "updated"
	ChangeTypeChanged AccountChangeAction = "type_changed"
	ChangeReparented  AccountChangeAction = "reparented"
	ChangeMerged      AccountChangeAction = "merged"
	ChangeDeactivated AccountChangeAction = "deactivated"
)

// AccountChangeLog is an append-only record of one account change
type AccountChangeLog struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	AccountID uuid.UUID
	Action    AccountChangeAction
	Field     string
	OldValue  string
	NewValue  string
	ChangedBy *uuid.UUID
	CreatedAt time.Time
}

// NewAccountChangeLog records a change to field on account
func NewAccountChangeLog(account *Account, action AccountChangeAction, field, oldValue, newValue string, by uuid.UUID) *AccountChangeLog {
	var changedBy *uuid.UUID
	if by != uuid.Nil {
		changedBy = &by
	}
	return &AccountChangeLog{
		ID:        uuid.New(),
		TenantID:  account.TenantID,
		AccountID: account.ID,
		Action:    action,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedBy: changedBy,
		CreatedAt: time.Now(),
	}
}

// AuditAction names a ledger action recorded in the audit log
type AuditAction string

const (
	AuditJournalPosted       AuditAction = "journal.posted"
	AuditJournalDraftCreated AuditAction = "journal.draft_created"
	AuditJournalVoided       AuditAction = "journal.voided"
)

// AuditLog records who did what to a journal entry
type AuditLog struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Action       AuditAction
	EntityType   string
	EntityID     uuid.UUID
	ActorID      *uuid.UUID
	SourceModule SourceModule
	Detail       string
	CreatedAt    time.Time
}

// NewJournalAudit records an action on entry
func NewJournalAudit(entry *JournalEntry, action AuditAction, actor uuid.UUID, detail string) *AuditLog {
	var actorID *uuid.UUID
	if actor != uuid.Nil {
		actorID = &actor
	}
	return &AuditLog{
		ID:           uuid.New(),
		TenantID:     entry.TenantID,
		Action:       action,
		EntityType:   AggregateTypeJournalEntry,
		EntityID:     entry.ID,
		ActorID:      actorID,
		SourceModule: entry.SourceModule,
		Detail:       detail,
		CreatedAt:    time.Now(),
	}
}
