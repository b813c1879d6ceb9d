package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProposedLine is a candidate journal line. Amounts are exact decimal strings,
// an empty string meaning zero.
type ProposedLine struct {
	AccountID  uuid.UUID
	Debit      string
	Credit     string
	Memo       string
	IsRounding bool
	Dimensions LineDimensions
}

// DebitLine builds a debit ProposedLine from an amount
func DebitLine(accountID uuid.UUID, amount decimal.Decimal, memo string) ProposedLine {
	return ProposedLine{AccountID: accountID, Debit: amount.StringFixed(MinorUnitScale), Memo: memo}
}

// CreditLine builds a credit ProposedLine from an amount
func CreditLine(accountID uuid.UUID, amount decimal.Decimal, memo string) ProposedLine {
	return ProposedLine{AccountID: accountID, Credit: amount.StringFixed(MinorUnitScale), Memo: memo}
}

// ValidationRequest is the input to the journal validator
type ValidationRequest struct {
	TenantID     uuid.UUID
	BusinessDate time.Time
	SourceModule SourceModule
	// Currency defaults to the tenant base currency when empty
	Currency string
	// ExchangeRate is required only when Currency differs from base
	ExchangeRate                *decimal.Decimal
	Lines                       []ProposedLine
	HasControlAccountPermission bool
}

// ValidatedJournal is a balanced, canonical line set ready to commit
type ValidatedJournal struct {
	PostingPeriod string
	Currency      string
	ExchangeRate  decimal.Decimal
	Lines         []JournalLine
	RoundingLine  *JournalLine
	TotalDebits   decimal.Decimal
	TotalCredits  decimal.Decimal
	Settings      *AccountingSettings
	// Warnings are non-fatal configuration problems the caller should log
	Warnings []string
}

// AccountLookup resolves accounts by id within a tenant
type AccountLookup interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Account, error)
}

// SettingsLookup loads a tenant's settings, returning shared.ErrNotFound when absent
type SettingsLookup interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*AccountingSettings, error)
}

// JournalValidator enforces balance, currency, period-lock and control-account policy
type JournalValidator struct {
	accounts AccountLookup
	settings SettingsLookup
	policy   *ControlAccountPolicy
}

// NewJournalValidator creates a validator. A nil policy uses the default allow-lists.
func NewJournalValidator(accounts AccountLookup, settings SettingsLookup, policy *ControlAccountPolicy) *JournalValidator {
	if policy == nil {
		policy = DefaultControlAccountPolicy()
	}
	return &JournalValidator{accounts: accounts, settings: settings, policy: policy}
}

type parsedLine struct {
	ProposedLine
	debit  decimal.Decimal
	credit decimal.Decimal
}

// Validate runs every check in order and returns the balanced line set
func (v *JournalValidator) Validate(ctx context.Context, req ValidationRequest) (*ValidatedJournal, error) {
	settings, err := v.loadSettings(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	currency, rate, err := resolveCurrency(settings, req.Currency, req.ExchangeRate)
	if err != nil {
		return nil, err
	}

	period := PostingPeriodFor(req.BusinessDate)
	if settings.IsPeriodLocked(period) {
		return nil, NewPeriodLockedError(period, settings.LockPeriodThrough)
	}

	parsed, err := parseLines(req.Lines)
	if err != nil {
		return nil, err
	}

	accounts, err := v.resolveAccounts(ctx, req.TenantID, parsed, settings.EffectiveRoundingAccount())
	if err != nil {
		return nil, err
	}

	for _, pl := range parsed {
		acct := accounts[pl.AccountID]
		if err := v.policy.Check(acct, req.SourceModule, req.HasControlAccountPermission); err != nil {
			return nil, err
		}
	}

	return balance(settings, period, currency, rate, parsed, accounts)
}

func (v *JournalValidator) loadSettings(ctx context.Context, tenantID uuid.UUID) (*AccountingSettings, error) {
	settings, err := v.settings.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return DefaultSettings(tenantID), nil
		}
		return nil, err
	}
	return settings, nil
}

func resolveCurrency(settings *AccountingSettings, requested string, rate *decimal.Decimal) (string, decimal.Decimal, error) {
	base := NormalizeCurrency(settings.BaseCurrency)
	currency := NormalizeCurrency(requested)
	if currency == "" {
		currency = base
	}
	if currency != base {
		if !settings.IsSupportedCurrency(currency) {
			return "", decimal.Zero, shared.NewDomainError(CodeUnsupportedCurrency,
				fmt.Sprintf("currency %s is not supported (base %s)", currency, base))
		}
		if rate == nil || !rate.IsPositive() {
			return "", decimal.Zero, ErrExchangeRateRequired
		}
		return currency, *rate, nil
	}
	if rate != nil && !rate.Equal(decimal.NewFromInt(1)) {
		return "", decimal.Zero, ErrCurrencyMismatch
	}
	return currency, decimal.NewFromInt(1), nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func parseLines(lines []ProposedLine) ([]parsedLine, error) {
	if len(lines) < 2 {
		return nil, shared.NewDomainError(CodeInvalidJournalLine, "a journal entry needs at least two lines")
	}
	out := make([]parsedLine, 0, len(lines))
	for i, l := range lines {
		if l.AccountID == uuid.Nil {
			return nil, invalidLine(i, "account is required")
		}
		debit, err := parseAmount(l.Debit)
		if err != nil {
			return nil, invalidLine(i, "debit is not a decimal: "+l.Debit)
		}
		credit, err := parseAmount(l.Credit)
		if err != nil {
			return nil, invalidLine(i, "credit is not a decimal: "+l.Credit)
		}
		if debit.IsNegative() || credit.IsNegative() {
			return nil, invalidLine(i, "amounts cannot be negative")
		}
		if debit.IsPositive() == credit.IsPositive() {
			return nil, invalidLine(i, "exactly one of debit or credit must be non-zero")
		}
		if !debit.Equal(debit.Round(MinorUnitScale)) || !credit.Equal(credit.Round(MinorUnitScale)) {
			return nil, invalidLine(i, "amounts cannot have more than two decimal places")
		}
		out = append(out, parsedLine{ProposedLine: l, debit: debit, credit: credit})
	}
	return out, nil
}

func (v *JournalValidator) resolveAccounts(ctx context.Context, tenantID uuid.UUID, lines []parsedLine, rounding *uuid.UUID) (map[uuid.UUID]*Account, error) {
	seen := make(map[uuid.UUID]struct{}, len(lines)+1)
	ids := make([]uuid.UUID, 0, len(lines)+1)
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}
	if rounding != nil {
		if _, ok := seen[*rounding]; !ok {
			ids = append(ids, *rounding)
		}
	}

	found, err := v.accounts.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Account, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	for _, l := range lines {
		acct, ok := byID[l.AccountID]
		if !ok {
			return nil, accountNotFound(l.AccountID.String())
		}
		if !acct.CanPost() {
			return nil, inactiveAccount(acct.AccountNumber)
		}
	}
	return byID, nil
}

func balance(settings *AccountingSettings, period, currency string, rate decimal.Decimal, parsed []parsedLine, accounts map[uuid.UUID]*Account) (*ValidatedJournal, error) {
	debits, credits := decimal.Zero, decimal.Zero
	lines := make([]JournalLine, 0, len(parsed)+1)
	for _, pl := range parsed {
		debits = debits.Add(pl.debit)
		credits = credits.Add(pl.credit)
		lines = append(lines, JournalLine{
			AccountID:  pl.AccountID,
			Debit:      pl.debit,
			Credit:     pl.credit,
			Memo:       pl.Memo,
			IsRounding: pl.IsRounding,
			Dimensions: pl.Dimensions,
		})
	}
	debits = debits.Round(MinorUnitScale)
	credits = credits.Round(MinorUnitScale)

	result := &ValidatedJournal{
		PostingPeriod: period,
		Currency:      currency,
		ExchangeRate:  rate,
		Settings:      settings,
	}

	gap := debits.Sub(credits)
	if !gap.IsZero() {
		roundingID := settings.EffectiveRoundingAccount()
		if gap.Abs().GreaterThan(settings.RoundingTolerance()) || roundingID == nil {
			return nil, NewUnbalancedJournalError(debits, credits)
		}
		acct, ok := accounts[*roundingID]
		if !ok || !acct.CanPost() {
			return nil, NewUnbalancedJournalError(debits, credits)
		}
		if acct.AccountType != AccountTypeExpense && acct.AccountType != AccountTypeEquity {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("rounding account %s is %s; expected expense or equity", acct.AccountNumber, acct.AccountType))
		}
		line := JournalLine{AccountID: acct.ID, Memo: "Rounding adjustment", IsRounding: true}
		if gap.IsPositive() {
			line.Credit = gap
			credits = credits.Add(gap)
		} else {
			line.Debit = gap.Abs()
			debits = debits.Add(gap.Abs())
		}
		lines = append(lines, line)
		result.RoundingLine = &lines[len(lines)-1]
	}

	for i := range lines {
		lines[i].SortOrder = i
	}
	result.Lines = lines
	result.TotalDebits = debits
	result.TotalCredits = credits
	return result, nil
}
