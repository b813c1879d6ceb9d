package accounting

import (
	"context"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every repository handed to fn shares one database transaction, so a journal entry,
// its lines, the audit row and the outbox rows either all commit or none do.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// EventWriter appends domain events to the transactional outbox
type EventWriter interface {
	Append(ctx context.Context, events ...shared.DomainEvent) error
}

// TransactionalRepositories exposes repositories bound to the current transaction.
//
// Code running inside Execute must only use these repositories. Reaching for a
// repository bound to the root connection from inside a transaction can deadlock
// on a single-connection pool.
type TransactionalRepositories interface {
	Accounts() accounting.AccountRepository
	Journals() accounting.JournalRepository
	Settings() accounting.SettingsRepository
	Mappings() accounting.MappingRepository
	Unmapped() accounting.UnmappedEventRepository
	ChangeLog() accounting.AccountChangeLogRepository
	Audit() accounting.AuditLogRepository
	// Outbox returns the outbox writer bound to the current transaction
	Outbox() EventWriter
}
