package accounting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings(uuid.New())

	assert.Equal(t, "USD", s.BaseCurrency)
	assert.Equal(t, AutoPostModeAutoPost, s.AutoPostMode)
	assert.True(t, s.RoundingTolerance().Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 3, s.RetryBudget())
	assert.Len(t, s.Defaults.Missing(), len(AllFallbackSlots))
	assert.False(t, s.IsPeriodLocked("1999-01"))
}

func TestSettings_PeriodLock(t *testing.T) {
	s := DefaultSettings(uuid.New())
	require.NoError(t, s.SetLockPeriod("2026-02"))

	assert.True(t, s.IsPeriodLocked("2026-01"))
	assert.True(t, s.IsPeriodLocked("2026-02"))
	assert.False(t, s.IsPeriodLocked("2026-03"))

	assert.Error(t, s.SetLockPeriod("2026/02"))
	require.NoError(t, s.SetLockPeriod(""))
	assert.False(t, s.IsPeriodLocked("2026-01"))
}

func TestSettings_Currencies(t *testing.T) {
	s := DefaultSettings(uuid.New())
	s.SetSupportedCurrencies([]string{" cad", "CAD", "", "eur"})

	assert.Equal(t, []string{"CAD", "EUR"}, s.SupportedCurrencies)
	assert.True(t, s.IsSupportedCurrency("usd"))
	assert.True(t, s.IsSupportedCurrency("Eur"))
	assert.False(t, s.IsSupportedCurrency("GBP"))
}

func TestSettings_Fallbacks(t *testing.T) {
	s := DefaultSettings(uuid.New())
	rounding := uuid.New()
	uf := uuid.New()

	assert.Nil(t, s.EffectiveRoundingAccount())
	s.SetFallback(SlotRounding, rounding)
	s.SetFallback(SlotUndepositedFunds, uf)

	assert.Equal(t, rounding, *s.EffectiveRoundingAccount())
	assert.True(t, s.IsFallbackAccount(uf))
	assert.False(t, s.IsFallbackAccount(uuid.New()))

	explicit := uuid.New()
	s.RoundingAccountID = &explicit
	assert.Equal(t, explicit, *s.EffectiveRoundingAccount())
}

func TestSettings_RepointAccount(t *testing.T) {
	s := DefaultSettings(uuid.New())
	old, replacement := uuid.New(), uuid.New()
	s.SetFallback(SlotUncategorizedRevenue, old)
	s.SetFallback(SlotServiceChargeRevenue, old)
	s.RoundingAccountID = &old
	version := s.Version

	moved := s.RepointAccount(old, replacement)
	assert.Equal(t, []FallbackSlot{SlotUncategorizedRevenue, SlotServiceChargeRevenue, SlotRounding}, moved)
	assert.Equal(t, replacement, *s.Fallback(SlotUncategorizedRevenue))
	assert.Equal(t, replacement, *s.Fallback(SlotServiceChargeRevenue))
	assert.Equal(t, replacement, *s.EffectiveRoundingAccount())
	assert.False(t, s.IsFallbackAccount(old))
	assert.Equal(t, version+1, s.Version)

	assert.Empty(t, s.RepointAccount(old, replacement))
	assert.Equal(t, version+1, s.Version)
}

func TestDefaultChart_CoversEverySlot(t *testing.T) {
	covered := map[FallbackSlot]bool{}
	numbers := map[string]bool{}
	for _, tpl := range DefaultChart {
		covered[tpl.Slot] = true
		assert.False(t, numbers[tpl.Number], "duplicate number %s", tpl.Number)
		numbers[tpl.Number] = true
	}
	for _, slot := range AllFallbackSlots {
		assert.True(t, covered[slot], slot)
	}
}

func TestControlAccountPolicy(t *testing.T) {
	policy := DefaultControlAccountPolicy()
	tenantID := uuid.New()
	tax := mustAccount(t, tenantID, "2200", AccountTypeLiability)
	require.NoError(t, tax.SetControlType(ControlAccountSalesTax))
	plain := mustAccount(t, tenantID, "4000", AccountTypeRevenue)

	for _, src := range []SourceModule{SourcePOS, SourcePOSReturn, SourceFnB, SourceAR, SourcePMS, SourceACH, SourceMembership, SourceReversal} {
		assert.NoError(t, policy.Check(tax, src, false), src)
	}
	assert.Error(t, policy.Check(tax, SourceAP, false))
	assert.Error(t, policy.Check(tax, SourceManual, false))
	assert.NoError(t, policy.Check(tax, SourceManual, true))
	assert.NoError(t, policy.Check(plain, SourceAP, false))
}

func TestMoneyHelpers(t *testing.T) {
	assert.True(t, FromMinor(1234).Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, int64(1235), ToMinor(decimal.RequireFromString("12.345")))
	assert.True(t, RoundMoney(decimal.RequireFromString("2.404")).Equal(decimal.RequireFromString("2.40")))
}
