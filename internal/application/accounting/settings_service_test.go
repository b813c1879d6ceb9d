package accounting_test

import (
	"context"
	"testing"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCache struct {
	entries     map[uuid.UUID]*accounting.AccountingSettings
	hits        int
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[uuid.UUID]*accounting.AccountingSettings)}
}

func (c *countingCache) Get(_ context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, bool) {
	s, ok := c.entries[tenantID]
	if ok {
		c.hits++
	}
	return s, ok
}

func (c *countingCache) Set(_ context.Context, s *accounting.AccountingSettings) {
	c.entries[s.TenantID] = s
}

func (c *countingCache) Invalidate(_ context.Context, tenantID uuid.UUID) {
	delete(c.entries, tenantID)
	c.invalidated++
}

func TestSettingsService_BootstrapsSystemChart(t *testing.T) {
	l := newLedger(t)
	settings := l.bootstrap()

	assert.Empty(t, settings.Defaults.Missing())
	assert.Equal(t, "USD", settings.BaseCurrency)
	assert.Equal(t, accounting.DefaultRoundingToleranceMinor, settings.RoundingToleranceMinor)

	all, err := persistence.NewGormAccountRepository(l.db).FindAllForTenant(l.ctx, l.tenant)
	require.NoError(t, err)
	require.Len(t, all, len(accounting.DefaultChart))
	for _, a := range all {
		assert.True(t, a.IsSystem, a.AccountNumber)
	}

	again := l.bootstrap()
	assert.Equal(t, settings.Version, again.Version)
	assert.Equal(t, *settings.Fallback(accounting.SlotRounding), *again.Fallback(accounting.SlotRounding))
}

func TestSettingsService_BootstrapReusesMatchingAccounts(t *testing.T) {
	l := newLedger(t)
	uf := l.account("1150", "Cash Drawer Clearing", accounting.AccountTypeAsset)
	wrongType := l.account("2200", "Repairs", accounting.AccountTypeExpense)

	settings := l.bootstrap()
	assert.Equal(t, uf.ID, *settings.Fallback(accounting.SlotUndepositedFunds))

	taxID := *settings.Fallback(accounting.SlotSalesTaxPayable)
	assert.NotEqual(t, wrongType.ID, taxID)
	tax, err := l.accounts.GetAccount(l.ctx, l.tenant, taxID)
	require.NoError(t, err)
	assert.Equal(t, "2200-1", tax.AccountNumber)
	assert.Equal(t, accounting.AccountTypeLiability, tax.AccountType)
}

func TestSettingsService_UpdateSettings(t *testing.T) {
	cache := newCountingCache()
	l := newLedger(t, withSettingsCache(cache))
	current := l.bootstrap()
	l.bootstrap()
	assert.Equal(t, 1, cache.hits)

	_, err := l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID: l.tenant, ExpectedVersion: current.Version + 5,
		RoundingToleranceMinor: ptr(10),
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	_, err = l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID: l.tenant, LockPeriodThrough: ptr("March 2024"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	updated, err := l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID:          l.tenant,
		ExpectedVersion:   current.Version,
		LockPeriodThrough: ptr("2024-02"),
		MaxEventRetries:   ptr(7),
	})
	require.NoError(t, err)
	assert.Greater(t, updated.Version, current.Version)
	assert.True(t, updated.IsPeriodLocked("2024-01"))
	assert.True(t, updated.IsPeriodLocked("2024-02"))
	assert.False(t, updated.IsPeriodLocked("2024-03"))
	assert.Equal(t, 3, cache.invalidated)

	assert.Equal(t, 7, l.settings.RetryBudget(l.ctx, l.tenant))
}

func TestSettingsService_FallbacksMustBePostable(t *testing.T) {
	l := newLedger(t)
	l.bootstrap()
	house := l.account("1210", "House Accounts", accounting.AccountTypeAsset)
	retired := l.account("1220", "Old House Accounts", accounting.AccountTypeAsset)
	_, err := l.accounts.DeactivateAccount(l.ctx, l.tenant, retired.ID, false, uuid.New())
	require.NoError(t, err)

	_, err = l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID:  l.tenant,
		Fallbacks: map[accounting.FallbackSlot]uuid.UUID{accounting.SlotAccountsReceivable: retired.ID},
	})
	assert.ErrorIs(t, err, shared.NewDomainError(accounting.CodeInactiveAccount, ""))

	_, err = l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID:          l.tenant,
		RoundingAccountID: ptr(uuid.New()),
	})
	assert.ErrorIs(t, err, accounting.ErrAccountNotFound)

	updated, err := l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID:  l.tenant,
		Fallbacks: map[accounting.FallbackSlot]uuid.UUID{accounting.SlotAccountsReceivable: house.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, house.ID, *updated.Fallback(accounting.SlotAccountsReceivable))
	assert.True(t, updated.IsFallbackAccount(house.ID))
}

func TestSettingsService_RetryBudgetDefault(t *testing.T) {
	l := newLedger(t)
	assert.Equal(t, accounting.DefaultSettings(l.tenant).RetryBudget(), l.settings.RetryBudget(l.ctx, l.tenant))

	closed := newLedger(t)
	sqlDB, err := closed.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Equal(t, shared.DefaultConsumerMaxRetries, closed.settings.RetryBudget(closed.ctx, closed.tenant))
}
