package persistence

import (
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := GormConfig(logger.Default.LogMode(logger.Silent))
	cfg.PrepareStmt = false
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AccountingModels()...))
	return db
}

func newTestAccount(t *testing.T, tenantID uuid.UUID, number, name string, accountType accounting.AccountType) *accounting.Account {
	t.Helper()
	acct, err := accounting.NewAccount(tenantID, number, name, accountType)
	require.NoError(t, err)
	return acct
}

// newTestEntry builds a balanced posted entry of amount between two accounts
func newTestEntry(tenantID uuid.UUID, source accounting.SourceModule, reference string, debit, credit uuid.UUID, amount string) *accounting.JournalEntry {
	businessDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	postedAt := businessDate.Add(10 * time.Hour)
	entry := &accounting.JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BusinessDate:        businessDate,
		PostingPeriod:       accounting.PostingPeriodFor(businessDate),
		SourceModule:        source,
		SourceReferenceID:   reference,
		CorrelationID:       reference,
		Status:              accounting.JournalStatusPosted,
		Currency:            "USD",
		ExchangeRate:        decimal.NewFromInt(1),
		PostedAt:            &postedAt,
	}
	entry.EntryNumber = "JE-202403-" + entry.ID.String()[:8]
	value := decimal.RequireFromString(amount)
	entry.Lines = []accounting.JournalLine{
		{ID: uuid.New(), JournalEntryID: entry.ID, TenantID: tenantID, AccountID: debit, Debit: value, Credit: decimal.Zero, SortOrder: 0},
		{ID: uuid.New(), JournalEntryID: entry.ID, TenantID: tenantID, AccountID: credit, Debit: decimal.Zero, Credit: value, SortOrder: 1},
	}
	return entry
}
