package persistence

import (
	"context"
	"errors"
	"testing"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingBinder struct {
	bound    []*gorm.DB
	appended []shared.DomainEvent
}

func (b *recordingBinder) Bind(tx *gorm.DB) appaccounting.EventWriter {
	b.bound = append(b.bound, tx)
	return b
}

func (b *recordingBinder) Append(_ context.Context, events ...shared.DomainEvent) error {
	b.appended = append(b.appended, events...)
	return nil
}

func TestGormTransactionScope_Commit(t *testing.T) {
	db := newLedgerDB(t)
	binder := &recordingBinder{}
	scope := NewGormTransactionScope(db, binder)
	ctx := context.Background()
	tenantID := uuid.New()

	cash := newTestAccount(t, tenantID, "1150", "Undeposited Funds", accounting.AccountTypeAsset)
	sales := newTestAccount(t, tenantID, "4000", "Sales", accounting.AccountTypeRevenue)
	entry := newTestEntry(tenantID, accounting.SourcePOS, "tender:t-1", cash.ID, sales.ID, "30.00")

	err := scope.Execute(ctx, func(repos appaccounting.TransactionalRepositories) error {
		if err := repos.Accounts().SaveBatch(ctx, []*accounting.Account{cash, sales}); err != nil {
			return err
		}
		if err := repos.Journals().Create(ctx, entry); err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, accounting.NewJournalAudit(entry, accounting.AuditJournalPosted, uuid.Nil, "")); err != nil {
			return err
		}
		if err := repos.ChangeLog().Append(ctx, accounting.NewAccountChangeLog(cash, accounting.ChangeCreated, "", "", cash.AccountNumber, uuid.Nil)); err != nil {
			return err
		}
		return repos.Outbox().Append(ctx, accounting.NewJournalPostedEvent(entry))
	})
	require.NoError(t, err)

	_, err = NewGormJournalRepository(db).FindByID(ctx, tenantID, entry.ID)
	assert.NoError(t, err)
	history, err := NewGormAccountChangeLogRepository(db).ListForAccount(ctx, tenantID, cash.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, accounting.ChangeCreated, history[0].Action)

	var audits int64
	require.NoError(t, db.Table("gl_audit_logs").Where("entity_id = ?", entry.ID).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)

	require.Len(t, binder.bound, 1)
	assert.NotSame(t, db, binder.bound[0])
	assert.Len(t, binder.appended, 1)
}

func TestGormTransactionScope_Rollback(t *testing.T) {
	db := newLedgerDB(t)
	scope := NewGormTransactionScope(db, &recordingBinder{})
	ctx := context.Background()
	tenantID := uuid.New()
	failure := errors.New("mapping lookup failed")

	acct := newTestAccount(t, tenantID, "1000", "Bank", accounting.AccountTypeAsset)
	err := scope.Execute(ctx, func(repos appaccounting.TransactionalRepositories) error {
		if err := repos.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		settings := accounting.DefaultSettings(tenantID)
		if err := repos.Settings().Save(ctx, settings); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)

	_, err = NewGormAccountRepository(db).FindByID(ctx, tenantID, acct.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = NewGormSettingsRepository(db).FindByTenant(ctx, tenantID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormTransactionScope_DuplicatePostingRollsBack(t *testing.T) {
	db := newLedgerDB(t)
	scope := NewGormTransactionScope(db, &recordingBinder{})
	ctx := context.Background()
	tenantID := uuid.New()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, NewGormJournalRepository(db).Create(ctx, newTestEntry(tenantID, accounting.SourcePOS, "tender:t-1", a, b, "5.00")))

	uc := accounting.UnmappedContext{TenantID: tenantID, SourceModule: accounting.SourcePOS, SourceReferenceID: "tender:t-1"}
	err := scope.Execute(ctx, func(repos appaccounting.TransactionalRepositories) error {
		if err := repos.Unmapped().Append(ctx, accounting.NewUnmappedEvent(uc, accounting.EntityPaymentType, "card", &a, "no mapping")); err != nil {
			return err
		}
		return repos.Journals().Create(ctx, newTestEntry(tenantID, accounting.SourcePOS, "tender:t-1", a, b, "5.00"))
	})
	assert.ErrorIs(t, err, accounting.ErrDuplicatePosting)

	rows, total, err := NewGormUnmappedEventRepository(db).List(ctx, tenantID, accounting.UnmappedFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
}
