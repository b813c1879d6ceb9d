package accounting

import (
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountType is the GL classification of an account
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance returns the side that increases an account of this type
func (t AccountType) NormalBalance() NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalBalanceDebit
	default:
		return NormalBalanceCredit
	}
}

// NormalBalance is the side on which an account normally carries its balance
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "debit"
	NormalBalanceCredit NormalBalance = "credit"
)

// ControlAccountType classifies accounts that summarize a subsidiary ledger
type ControlAccountType string

const (
	ControlAccountNone             ControlAccountType = ""
	ControlAccountAP               ControlAccountType = "ap"
	ControlAccountAR               ControlAccountType = "ar"
	ControlAccountSalesTax         ControlAccountType = "sales_tax"
	ControlAccountUndepositedFunds ControlAccountType = "undeposited_funds"
	ControlAccountBank             ControlAccountType = "bank"
	ControlAccountGuestLedger      ControlAccountType = "guest_ledger"
)

// IsValid checks if the control account type is known
func (c ControlAccountType) IsValid() bool {
	switch c {
	case ControlAccountAP, ControlAccountAR, ControlAccountSalesTax,
		ControlAccountUndepositedFunds, ControlAccountBank, ControlAccountGuestLedger:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state of an account
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "active"
	AccountStatusPendingMerge AccountStatus = "pending_merge"
	AccountStatusMerged       AccountStatus = "merged"
	AccountStatusInactive     AccountStatus = "inactive"
)

// Account is a node in a tenant's chart of accounts
type Account struct {
	shared.TenantAggregateRoot
	AccountNumber      string
	Name               string
	Description        string
	AccountType        AccountType
	NormalBalance      NormalBalance
	IsControlAccount   bool
	ControlAccountType ControlAccountType
	IsActive           bool
	IsSystem           bool
	ParentAccountID    *uuid.UUID
	Depth              int
	Path               string
	Status             AccountStatus
	MergedIntoID       *uuid.UUID
}

// NewAccount creates an active account. Depth and path are filled in by the hierarchy
// functions once the account is placed in a snapshot.
func NewAccount(tenantID uuid.UUID, number, name string, accountType AccountType) (*Account, error) {
	number = strings.TrimSpace(number)
	name = strings.TrimSpace(name)
	if number == "" {
		return nil, invalidAccount("account number is required")
	}
	if strings.Contains(number, PathSeparator) {
		return nil, invalidAccount("account number cannot contain '" + PathSeparator + "'")
	}
	if name == "" {
		return nil, invalidAccount("account name is required")
	}
	if !accountType.IsValid() {
		return nil, invalidAccount("invalid account type: " + string(accountType))
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountNumber:       number,
		Name:                name,
		AccountType:         accountType,
		NormalBalance:       accountType.NormalBalance(),
		IsActive:            true,
		Status:              AccountStatusActive,
		Path:                number,
	}, nil
}

// SetControlType classifies the account as a control account. An empty type clears it.
func (a *Account) SetControlType(controlType ControlAccountType) error {
	if controlType == ControlAccountNone {
		a.IsControlAccount = false
		a.ControlAccountType = ControlAccountNone
		a.IncrementVersion()
		return nil
	}
	if !controlType.IsValid() {
		return invalidAccount("invalid control account type: " + string(controlType))
	}
	a.IsControlAccount = true
	a.ControlAccountType = controlType
	a.IncrementVersion()
	return nil
}

// Rename changes the display name
func (a *Account) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidAccount("account name is required")
	}
	a.Name = name
	a.IncrementVersion()
	return nil
}

// ChangeType changes the account type. History must not change meaning, so the
// change is refused once the account carries posted lines.
func (a *Account) ChangeType(newType AccountType, hasPostedLines bool) error {
	if !newType.IsValid() {
		return invalidAccount("invalid account type: " + string(newType))
	}
	if newType == a.AccountType {
		return nil
	}
	if hasPostedLines {
		return ErrAccountTypeLocked
	}
	a.AccountType = newType
	a.NormalBalance = newType.NormalBalance()
	a.IncrementVersion()
	return nil
}

// CanPost reports whether new journal lines may reference this account
func (a *Account) CanPost() bool {
	return a.IsActive && a.Status == AccountStatusActive
}

// Deactivate retires the account
func (a *Account) Deactivate() error {
	if a.Status == AccountStatusMerged {
		return shared.NewDomainError("INVALID_STATE", "merged accounts are already retired")
	}
	a.IsActive = false
	a.Status = AccountStatusInactive
	a.IncrementVersion()
	return nil
}

// BeginMerge flags the account as the source of an in-flight merge
func (a *Account) BeginMerge(target *Account) error {
	if err := ValidateMerge(a, target); err != nil {
		return err
	}
	a.Status = AccountStatusPendingMerge
	a.IncrementVersion()
	return nil
}

// CompleteMerge retires the account into target
func (a *Account) CompleteMerge(targetID uuid.UUID) {
	a.Status = AccountStatusMerged
	a.IsActive = false
	a.MergedIntoID = &targetID
	a.IncrementVersion()
	a.AddDomainEvent(NewAccountMergedEvent(a, targetID, time.Now()))
}

// ValidateMerge checks the preconditions for merging source into target
func ValidateMerge(source, target *Account) error {
	switch {
	case source == nil || target == nil:
		return ErrInvalidMerge
	case source.ID == target.ID:
		return shared.NewDomainError(CodeInvalidMerge, "cannot merge an account into itself")
	case source.TenantID != target.TenantID:
		return shared.NewDomainError(CodeInvalidMerge, "accounts belong to different tenants")
	case source.AccountType != target.AccountType:
		return shared.NewDomainError(CodeInvalidMerge, "accounts must share the same type")
	case !source.CanPost():
		return shared.NewDomainError(CodeInvalidMerge, "source account is not active")
	case !target.CanPost():
		return shared.NewDomainError(CodeInvalidMerge, "target account is not active")
	}
	return nil
}
