package persistence

import (
	"context"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"gorm.io/gorm"
)

// OutboxBinder binds an outbox writer to a transaction
type OutboxBinder interface {
	Bind(tx *gorm.DB) appaccounting.EventWriter
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox OutboxBinder
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, outbox OutboxBinder) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appaccounting.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx, outbox: s.outbox}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox OutboxBinder
}

// Accounts returns the account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Accounts() accounting.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Journals returns the journal repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Journals() accounting.JournalRepository {
	return NewGormJournalRepository(r.tx)
}

// Settings returns the settings repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Settings() accounting.SettingsRepository {
	return NewGormSettingsRepository(r.tx)
}

// Mappings returns the mapping repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Mappings() accounting.MappingRepository {
	return NewGormMappingRepository(r.tx)
}

// Unmapped returns the unmapped event log scoped to the current transaction.
func (r *gormTransactionalRepositories) Unmapped() accounting.UnmappedEventRepository {
	return NewGormUnmappedEventRepository(r.tx)
}

// ChangeLog returns the account history scoped to the current transaction.
func (r *gormTransactionalRepositories) ChangeLog() accounting.AccountChangeLogRepository {
	return NewGormAccountChangeLogRepository(r.tx)
}

// Audit returns the audit log scoped to the current transaction.
func (r *gormTransactionalRepositories) Audit() accounting.AuditLogRepository {
	return NewGormAuditLogRepository(r.tx)
}

// Outbox returns the outbox writer scoped to the current transaction.
func (r *gormTransactionalRepositories) Outbox() appaccounting.EventWriter {
	return r.outbox.Bind(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appaccounting.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appaccounting.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
