package accounting

import (
	"slices"
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AutoPostMode controls whether new entries post immediately
type AutoPostMode string

const (
	AutoPostModeAutoPost  AutoPostMode = "auto_post"
	AutoPostModeDraftOnly AutoPostMode = "draft_only"
)

// Settings defaults
const (
	DefaultBaseCurrency           = "USD"
	DefaultRoundingToleranceMinor = 5
	MinorUnitScale                = 2
)

// FallbackSlot names one of the tenant's default fallback accounts
type FallbackSlot string

const (
	SlotUndepositedFunds     FallbackSlot = "undeposited_funds"
	SlotUncategorizedRevenue FallbackSlot = "uncategorized_revenue"
	SlotSalesTaxPayable      FallbackSlot = "sales_tax_payable"
	SlotDiscount             FallbackSlot = "discount"
	SlotReturns              FallbackSlot = "returns"
	SlotServiceChargeRevenue FallbackSlot = "service_charge_revenue"
	SlotSurchargeRevenue     FallbackSlot = "surcharge_revenue"
	SlotTipsPayable          FallbackSlot = "tips_payable"
	SlotPriceOverrideExpense FallbackSlot = "price_override_expense"
	SlotRounding             FallbackSlot = "rounding"
	SlotAccountsReceivable   FallbackSlot = "accounts_receivable"
	SlotACHClearing          FallbackSlot = "ach_clearing"
	SlotOperatingBank        FallbackSlot = "operating_bank"
	SlotMembershipRevenue    FallbackSlot = "membership_revenue"
	SlotDeferredRevenue      FallbackSlot = "deferred_revenue"
)

// AllFallbackSlots lists every slot in bootstrap order
var AllFallbackSlots = []FallbackSlot{
	SlotUndepositedFunds, SlotUncategorizedRevenue, SlotSalesTaxPayable, SlotDiscount,
	SlotReturns, SlotServiceChargeRevenue, SlotSurchargeRevenue, SlotTipsPayable,
	SlotPriceOverrideExpense, SlotRounding, SlotAccountsReceivable, SlotACHClearing,
	SlotOperatingBank, SlotMembershipRevenue, SlotDeferredRevenue,
}

// ChartTemplate describes a system account created when settings are bootstrapped
type ChartTemplate struct {
	Slot        FallbackSlot
	Number      string
	Name        string
	Type        AccountType
	ControlType ControlAccountType
}

// DefaultChart is the system chart used to heal missing fallback accounts
var DefaultChart = []ChartTemplate{
	{SlotOperatingBank, "1000", "Operating Bank", AccountTypeAsset, ControlAccountBank},
	{SlotUndepositedFunds, "1150", "Undeposited Funds", AccountTypeAsset, ControlAccountUndepositedFunds},
	{SlotACHClearing, "1160", "ACH Clearing", AccountTypeAsset, ControlAccountNone},
	{SlotAccountsReceivable, "1200", "Accounts Receivable", AccountTypeAsset, ControlAccountAR},
	{SlotSalesTaxPayable, "2200", "Sales Tax Payable", AccountTypeLiability, ControlAccountSalesTax},
	{SlotTipsPayable, "2300", "Tips Payable", AccountTypeLiability, ControlAccountNone},
	{SlotDeferredRevenue, "2400", "Deferred Revenue", AccountTypeLiability, ControlAccountNone},
	{SlotServiceChargeRevenue, "4100", "Service Charge Revenue", AccountTypeRevenue, ControlAccountNone},
	{SlotSurchargeRevenue, "4110", "Surcharge Revenue", AccountTypeRevenue, ControlAccountNone},
	{SlotMembershipRevenue, "4200", "Membership Revenue", AccountTypeRevenue, ControlAccountNone},
	{SlotDiscount, "4900", "Discounts", AccountTypeRevenue, ControlAccountNone},
	{SlotReturns, "4910", "Returns and Allowances", AccountTypeRevenue, ControlAccountNone},
	{SlotUncategorizedRevenue, "4990", "Uncategorized Revenue", AccountTypeRevenue, ControlAccountNone},
	{SlotPriceOverrideExpense, "6900", "Price Override Expense", AccountTypeExpense, ControlAccountNone},
	{SlotRounding, "6990", "Rounding Adjustments", AccountTypeExpense, ControlAccountNone},
}

// DefaultAccounts holds the tenant's fallback account per slot
type DefaultAccounts map[FallbackSlot]uuid.UUID

// Get returns the account for slot, or nil when unset
func (d DefaultAccounts) Get(slot FallbackSlot) *uuid.UUID {
	id, ok := d[slot]
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}

// Missing returns slots that have no account assigned
func (d DefaultAccounts) Missing() []FallbackSlot {
	var out []FallbackSlot
	for _, slot := range AllFallbackSlots {
		if d.Get(slot) == nil {
			out = append(out, slot)
		}
	}
	return out
}

// AccountingSettings is the per-tenant posting configuration
type AccountingSettings struct {
	shared.BaseEntity
	TenantID               uuid.UUID
	BaseCurrency           string
	SupportedCurrencies    []string
	AutoPostMode           AutoPostMode
	LockPeriodThrough      string
	RoundingToleranceMinor int
	RoundingAccountID      *uuid.UUID
	MaxEventRetries        int
	Defaults               DefaultAccounts
	Version                int
}

// DefaultSettings returns the safe defaults used when a tenant has no settings row
func DefaultSettings(tenantID uuid.UUID) *AccountingSettings {
	return &AccountingSettings{
		BaseEntity:             shared.NewBaseEntity(),
		TenantID:               tenantID,
		BaseCurrency:           DefaultBaseCurrency,
		SupportedCurrencies:    []string{DefaultBaseCurrency},
		AutoPostMode:           AutoPostModeAutoPost,
		RoundingToleranceMinor: DefaultRoundingToleranceMinor,
		MaxEventRetries:        shared.DefaultConsumerMaxRetries,
		Defaults:               DefaultAccounts{},
		Version:                1,
	}
}

// NormalizeCurrency upper-cases and trims a currency code
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsSupportedCurrency reports whether entries may be posted in code
func (s *AccountingSettings) IsSupportedCurrency(code string) bool {
	code = NormalizeCurrency(code)
	if code == NormalizeCurrency(s.BaseCurrency) {
		return true
	}
	for _, c := range s.SupportedCurrencies {
		if NormalizeCurrency(c) == code {
			return true
		}
	}
	return false
}

// IsPeriodLocked reports whether period (YYYY-MM) falls on or before the lock
func (s *AccountingSettings) IsPeriodLocked(period string) bool {
	return s.LockPeriodThrough != "" && period <= s.LockPeriodThrough
}

// RoundingTolerance returns the tolerance as a currency amount
func (s *AccountingSettings) RoundingTolerance() decimal.Decimal {
	return decimal.New(int64(s.RoundingToleranceMinor), -MinorUnitScale)
}

// RetryBudget returns the consumer retry budget, never less than one attempt
func (s *AccountingSettings) RetryBudget() int {
	if s.MaxEventRetries < 1 {
		return shared.DefaultConsumerMaxRetries
	}
	return s.MaxEventRetries
}

// EffectiveRoundingAccount returns the configured rounding account, falling back to the
// rounding slot
func (s *AccountingSettings) EffectiveRoundingAccount() *uuid.UUID {
	if s.RoundingAccountID != nil {
		return s.RoundingAccountID
	}
	return s.Defaults.Get(SlotRounding)
}

// Fallback returns the default account for slot
func (s *AccountingSettings) Fallback(slot FallbackSlot) *uuid.UUID {
	return s.Defaults.Get(slot)
}

// FallbackAccountIDs returns every account that backs a required fallback
func (s *AccountingSettings) FallbackAccountIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, slot := range AllFallbackSlots {
		if id := s.Defaults.Get(slot); id != nil {
			ids = append(ids, *id)
		}
	}
	if s.RoundingAccountID != nil {
		ids = append(ids, *s.RoundingAccountID)
	}
	return ids
}

// IsFallbackAccount reports whether id backs a required fallback
func (s *AccountingSettings) IsFallbackAccount(id uuid.UUID) bool {
	for _, f := range s.FallbackAccountIDs() {
		if f == id {
			return true
		}
	}
	return false
}

// SetLockPeriod sets the lock, validating the YYYY-MM format. Empty clears it.
func (s *AccountingSettings) SetLockPeriod(period string) error {
	period = strings.TrimSpace(period)
	if period != "" {
		if _, err := time.Parse(PeriodLayout, period); err != nil {
			return shared.NewDomainError("INVALID_INPUT", "lock period must be YYYY-MM")
		}
	}
	s.LockPeriodThrough = period
	s.bump()
	return nil
}

// SetRoundingTolerance sets the tolerance in minor units
func (s *AccountingSettings) SetRoundingTolerance(minor int) error {
	if minor < 0 {
		return shared.NewDomainError("INVALID_INPUT", "rounding tolerance cannot be negative")
	}
	s.RoundingToleranceMinor = minor
	s.bump()
	return nil
}

// SetAutoPostMode sets how new entries are committed
func (s *AccountingSettings) SetAutoPostMode(mode AutoPostMode) error {
	if mode != AutoPostModeAutoPost && mode != AutoPostModeDraftOnly {
		return shared.NewDomainError("INVALID_INPUT", "invalid auto post mode: "+string(mode))
	}
	s.AutoPostMode = mode
	s.bump()
	return nil
}

// SetSupportedCurrencies replaces the supported currency list
func (s *AccountingSettings) SetSupportedCurrencies(codes []string) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = NormalizeCurrency(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	s.SupportedCurrencies = out
	s.bump()
}

// SetFallback assigns the default account for slot
func (s *AccountingSettings) SetFallback(slot FallbackSlot, accountID uuid.UUID) {
	if s.Defaults == nil {
		s.Defaults = DefaultAccounts{}
	}
	s.Defaults[slot] = accountID
	s.bump()
}

// RepointAccount moves every fallback slot backed by from onto to, together with the
// rounding account. It returns the slots it moved; a moved rounding account is
// reported as SlotRounding.
func (s *AccountingSettings) RepointAccount(from, to uuid.UUID) []FallbackSlot {
	var moved []FallbackSlot
	for _, slot := range AllFallbackSlots {
		if id := s.Defaults.Get(slot); id != nil && *id == from {
			s.Defaults[slot] = to
			moved = append(moved, slot)
		}
	}
	if s.RoundingAccountID != nil && *s.RoundingAccountID == from {
		target := to
		s.RoundingAccountID = &target
		if !slices.Contains(moved, SlotRounding) {
			moved = append(moved, SlotRounding)
		}
	}
	if len(moved) > 0 {
		s.bump()
	}
	return moved
}

func (s *AccountingSettings) bump() {
	s.Version++
	s.Touch()
}
