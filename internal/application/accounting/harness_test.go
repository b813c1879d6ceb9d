package accounting_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/pos"
	"github.com/erp/posting/internal/infrastructure/event"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var businessDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// ledger wires the posting services over an in-memory database
type ledger struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	tenant   uuid.UUID
	logs     *observer.ObservedLogs
	scope    appaccounting.TransactionScope
	settings *appaccounting.SettingsService
	reversal *appaccounting.ReversalService
	posting  *appaccounting.PostingService
	accounts *appaccounting.AccountService
	mappings *appaccounting.MappingService
	deps     appaccounting.AdapterDeps
	journals *persistence.GormJournalRepository
	unmapped *persistence.GormUnmappedEventRepository
}

type ledgerOption func(*ledgerConfig)

type ledgerConfig struct {
	cache appaccounting.SettingsCache
}

func withSettingsCache(c appaccounting.SettingsCache) ledgerOption {
	return func(cfg *ledgerConfig) { cfg.cache = c }
}

func newLedger(t *testing.T, opts ...ledgerOption) *ledger {
	t.Helper()
	cfg := &ledgerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	gormCfg := persistence.GormConfig(logger.Default.LogMode(logger.Silent))
	gormCfg.PrepareStmt = false
	db, err := gorm.Open(sqlite.Open(":memory:"), gormCfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AccountingModels()...))

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	scope := persistence.NewGormTransactionScope(db, event.NewOutboxPublisher(serializer))

	policy := accounting.DefaultControlAccountPolicy()
	journals := persistence.NewGormJournalRepository(db)
	unmapped := persistence.NewGormUnmappedEventRepository(db)
	settings := appaccounting.NewSettingsService(scope, cfg.cache, appaccounting.SettingsDefaults{}, log)
	reversal := appaccounting.NewReversalService(scope, policy, nil, log)

	return &ledger{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		tenant:   uuid.New(),
		logs:     logs,
		scope:    scope,
		settings: settings,
		reversal: reversal,
		posting:  appaccounting.NewPostingService(scope, journals, reversal, policy, nil, log),
		accounts: appaccounting.NewAccountService(scope, persistence.NewGormAccountRepository(db), persistence.NewGormAccountChangeLogRepository(db), cfg.cache, log),
		mappings: appaccounting.NewMappingService(scope, unmapped, log),
		deps: appaccounting.AdapterDeps{
			TX:       scope,
			Settings: settings,
			Reversal: reversal,
			Policy:   policy,
			Logger:   log,
		},
		journals: journals,
		unmapped: unmapped,
	}
}

// bootstrap creates the tenant's settings and system chart
func (l *ledger) bootstrap() *accounting.AccountingSettings {
	l.t.Helper()
	s, err := l.settings.EnsureSettings(l.ctx, l.tenant)
	require.NoError(l.t, err)
	return s
}

func (l *ledger) fallback(slot accounting.FallbackSlot) uuid.UUID {
	l.t.Helper()
	id := l.bootstrap().Fallback(slot)
	require.NotNil(l.t, id, "fallback %s", slot)
	return *id
}

func (l *ledger) account(number, name string, accountType accounting.AccountType) *accounting.Account {
	l.t.Helper()
	acct, err := l.accounts.CreateAccount(l.ctx, appaccounting.CreateAccountCommand{
		TenantID:      l.tenant,
		AccountNumber: number,
		Name:          name,
		AccountType:   accountType,
	})
	require.NoError(l.t, err)
	return acct
}

func (l *ledger) mapSubDepartment(subDepartment, revenue uuid.UUID) {
	l.t.Helper()
	_, err := l.mappings.SaveSubDepartmentMapping(l.ctx, appaccounting.SubDepartmentMappingCommand{
		TenantID:         l.tenant,
		SubDepartmentID:  subDepartment,
		RevenueAccountID: revenue,
	})
	require.NoError(l.t, err)
}

func (l *ledger) entriesFor(source accounting.SourceModule, reference string) []*accounting.JournalEntry {
	l.t.Helper()
	entries, err := l.journals.FindBySourceIncludingVoided(l.ctx, l.tenant, source, reference)
	require.NoError(l.t, err)
	return entries
}

func (l *ledger) activeEntry(source accounting.SourceModule, reference string) *accounting.JournalEntry {
	l.t.Helper()
	entry, err := l.journals.FindActiveBySource(l.ctx, l.tenant, source, reference)
	require.NoError(l.t, err)
	return entry
}

func (l *ledger) unmappedRows(filter accounting.UnmappedFilter) []*accounting.UnmappedEvent {
	l.t.Helper()
	rows, _, err := l.unmapped.List(l.ctx, l.tenant, filter)
	require.NoError(l.t, err)
	return rows
}

func (l *ledger) outboxCount(eventType string) int64 {
	l.t.Helper()
	var n int64
	require.NoError(l.t, l.db.Model(&models.OutboxEntryModel{}).
		Where("tenant_id = ? AND event_type = ?", l.tenant, eventType).Count(&n).Error)
	return n
}

// render prints entry lines as "number debit credit memo" rows
func (l *ledger) render(entry *accounting.JournalEntry) string {
	l.t.Helper()
	all, err := persistence.NewGormAccountRepository(l.db).FindAllForTenant(l.ctx, l.tenant)
	require.NoError(l.t, err)
	numbers := make(map[uuid.UUID]string, len(all))
	for _, a := range all {
		numbers[a.ID] = a.AccountNumber
	}

	var b strings.Builder
	for _, line := range entry.Lines {
		fmt.Fprintf(&b, "%-6s %8s %8s %s\n", numbers[line.AccountID],
			line.Debit.StringFixed(2), line.Credit.StringFixed(2), line.Memo)
	}
	return b.String()
}

// balanceOf sums debits minus credits on account across entries
func balanceOf(entries []*accounting.JournalEntry, account uuid.UUID) string {
	total := accounting.FromMinor(0)
	for _, e := range entries {
		for _, line := range e.Lines {
			if line.AccountID == account {
				total = total.Add(line.Debit).Sub(line.Credit)
			}
		}
	}
	return total.StringFixed(2)
}

// tender builds a tender event for an order on the shared business date
func (l *ledger) tender(order uuid.UUID, paymentType string, amount int64, snapshot pos.OrderSnapshot) *pos.TenderRecordedEvent {
	e := pos.NewTenderRecordedEvent(l.tenant, order, uuid.New())
	e.BusinessDate = businessDate
	e.PaymentType = paymentType
	e.AmountMinor = amount
	e.Order = snapshot
	return e
}

func ptr[T any](v T) *T { return &v }
