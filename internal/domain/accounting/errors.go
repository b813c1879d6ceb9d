package accounting

import (
	"fmt"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes raised by the ledger.
const (
	CodeUnbalancedJournal        = "UNBALANCED_JOURNAL"
	CodePeriodLocked             = "PERIOD_LOCKED"
	CodeControlAccountRestricted = "CONTROL_ACCOUNT_RESTRICTED"
	CodeCurrencyMismatch         = "CURRENCY_MISMATCH"
	CodeUnsupportedCurrency      = "UNSUPPORTED_CURRENCY"
	CodeExchangeRateRequired     = "EXCHANGE_RATE_REQUIRED"
	CodeAccountNotFound          = "ACCOUNT_NOT_FOUND"
	CodeInactiveAccount          = "INACTIVE_ACCOUNT"
	CodeMissingMapping           = "MISSING_MAPPING"
	CodeInvalidJournalLine       = "INVALID_JOURNAL_LINE"
	CodeDuplicatePosting         = "DUPLICATE_POSTING"
	CodeAccountNumberExists      = "ACCOUNT_NUMBER_EXISTS"
	CodeAccountTypeLocked        = "ACCOUNT_TYPE_LOCKED"
	CodeCircularHierarchy        = "CIRCULAR_HIERARCHY"
	CodeAccountInUse             = "ACCOUNT_IN_USE"
	CodeFallbackAccountRequired  = "FALLBACK_ACCOUNT_REQUIRED"
	CodeInvalidMerge             = "INVALID_MERGE"
	CodeEntryNotPosted           = "ENTRY_NOT_POSTED"
	CodeInvalidAccount           = "INVALID_ACCOUNT"
)

// UnbalancedJournalError carries the totals that failed to net to zero.
type UnbalancedJournalError struct {
	*shared.DomainError
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// NewUnbalancedJournalError builds an UNBALANCED_JOURNAL error.
func NewUnbalancedJournalError(debits, credits decimal.Decimal) *UnbalancedJournalError {
	return &UnbalancedJournalError{
		DomainError: shared.NewDomainError(CodeUnbalancedJournal,
			fmt.Sprintf("journal is unbalanced: debits %s, credits %s", debits.StringFixed(2), credits.StringFixed(2))),
		Debits:  debits,
		Credits: credits,
	}
}

// Unwrap exposes the domain error for errors.Is / errors.As.
func (e *UnbalancedJournalError) Unwrap() error { return e.DomainError }

// PeriodLockedError reports a posting into a closed period.
type PeriodLockedError struct {
	*shared.DomainError
	Period     string
	LockedThru string
}

// NewPeriodLockedError builds a PERIOD_LOCKED error.
func NewPeriodLockedError(period, lockedThrough string) *PeriodLockedError {
	return &PeriodLockedError{
		DomainError: shared.NewDomainError(CodePeriodLocked,
			fmt.Sprintf("posting period %s is locked (locked through %s)", period, lockedThrough)),
		Period:     period,
		LockedThru: lockedThrough,
	}
}

func (e *PeriodLockedError) Unwrap() error { return e.DomainError }

// ControlAccountRestrictedError reports a control-account policy violation.
type ControlAccountRestrictedError struct {
	*shared.DomainError
	AccountNumber string
	ControlType   ControlAccountType
	Source        SourceModule
}

// NewControlAccountRestrictedError builds a CONTROL_ACCOUNT_RESTRICTED error.
func NewControlAccountRestrictedError(accountNumber string, controlType ControlAccountType, source SourceModule) *ControlAccountRestrictedError {
	return &ControlAccountRestrictedError{
		DomainError: shared.NewDomainError(CodeControlAccountRestricted,
			fmt.Sprintf("source %s may not post to %s control account %s", source, controlType, accountNumber)),
		AccountNumber: accountNumber,
		ControlType:   controlType,
		Source:        source,
	}
}

func (e *ControlAccountRestrictedError) Unwrap() error { return e.DomainError }

// MissingMappingError is raised internally when a lookup has no result and no fallback
// is applicable. Adapters convert it into an unmapped-event row.
type MissingMappingError struct {
	*shared.DomainError
	EntityType UnmappedEntityType
	EntityID   string
}

// NewMissingMappingError builds a MISSING_MAPPING error.
func NewMissingMappingError(entityType UnmappedEntityType, entityID string) *MissingMappingError {
	return &MissingMappingError{
		DomainError: shared.NewDomainError(CodeMissingMapping,
			fmt.Sprintf("no GL mapping for %s %s", entityType, entityID)),
		EntityType: entityType,
		EntityID:   entityID,
	}
}

func (e *MissingMappingError) Unwrap() error { return e.DomainError }

// Plain coded errors.
var (
	ErrUnsupportedCurrency     = shared.NewDomainError(CodeUnsupportedCurrency, "currency is not supported for this tenant")
	ErrExchangeRateRequired    = shared.NewDomainError(CodeExchangeRateRequired, "exchange rate is required for foreign currency entries")
	ErrCurrencyMismatch        = shared.NewDomainError(CodeCurrencyMismatch, "base currency entries must use an exchange rate of 1")
	ErrAccountNotFound         = shared.NewDomainError(CodeAccountNotFound, "account not found")
	ErrInactiveAccount         = shared.NewDomainError(CodeInactiveAccount, "account is inactive")
	ErrDuplicatePosting        = shared.NewDomainError(CodeDuplicatePosting, "an entry already exists for this source reference")
	ErrAccountNumberExists     = shared.NewDomainError(CodeAccountNumberExists, "account number already exists")
	ErrAccountTypeLocked       = shared.NewDomainError(CodeAccountTypeLocked, "account type cannot change once the account has posted lines")
	ErrCircularHierarchy       = shared.NewDomainError(CodeCircularHierarchy, "parent assignment would create a cycle")
	ErrAccountInUse            = shared.NewDomainError(CodeAccountInUse, "account has journal lines")
	ErrFallbackAccountRequired = shared.NewDomainError(CodeFallbackAccountRequired, "account is a required fallback target")
	ErrInvalidMerge            = shared.NewDomainError(CodeInvalidMerge, "accounts cannot be merged")
	ErrEntryNotPosted          = shared.NewDomainError(CodeEntryNotPosted, "only posted entries can be voided")
)

func accountNotFound(ref string) error {
	return shared.NewDomainError(CodeAccountNotFound, fmt.Sprintf("account %s not found", ref))
}

func inactiveAccount(number string) error {
	return shared.NewDomainError(CodeInactiveAccount, fmt.Sprintf("account %s is inactive or merged", number))
}

func invalidLine(index int, msg string) error {
	return shared.NewDomainError(CodeInvalidJournalLine, fmt.Sprintf("line %d: %s", index+1, msg))
}

func invalidAccount(msg string) error {
	return shared.NewDomainError(CodeInvalidAccount, msg)
}
