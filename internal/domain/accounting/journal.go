package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus is the lifecycle state of a journal entry
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "draft"
	JournalStatusPosted JournalStatus = "posted"
	JournalStatusVoided JournalStatus = "voided"
)

// SourceModule identifies what produced a journal entry
type SourceModule string

const (
	SourceManual     SourceModule = "manual"
	SourcePOS        SourceModule = "pos"
	SourcePOSReturn  SourceModule = "pos_return"
	SourceFnB        SourceModule = "fnb"
	SourceAR         SourceModule = "ar"
	SourceAP         SourceModule = "ap"
	SourcePMS        SourceModule = "pms"
	SourceACH        SourceModule = "ach"
	SourceMembership SourceModule = "membership"
	SourceReversal   SourceModule = "reversal"
)

// IsValid checks if the source module is known
func (s SourceModule) IsValid() bool {
	switch s {
	case SourceManual, SourcePOS, SourcePOSReturn, SourceFnB, SourceAR, SourceAP,
		SourcePMS, SourceACH, SourceMembership, SourceReversal:
		return true
	}
	return false
}

// PeriodLayout is the posting period format
const PeriodLayout = "2006-01"

// PostingPeriodFor derives the YYYY-MM period of a business date
func PostingPeriodFor(businessDate time.Time) string {
	return businessDate.Format(PeriodLayout)
}

// LineDimensions are reporting tags carried on a journal line. They never affect balancing.
type LineDimensions struct {
	LocationID             *uuid.UUID
	DepartmentID           *uuid.UUID
	CustomerID             *uuid.UUID
	VendorID               *uuid.UUID
	SubDepartmentID        *uuid.UUID
	TerminalID             string
	Channel                string
	DiscountClassification string
}

// JournalLine is one side of a journal entry
type JournalLine struct {
	ID             uuid.UUID
	JournalEntryID uuid.UUID
	TenantID       uuid.UUID
	AccountID      uuid.UUID
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Memo           string
	SortOrder      int
	IsRounding     bool
	Dimensions     LineDimensions
}

// Amount returns the non-zero side of the line
func (l JournalLine) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// IsDebit reports whether the line is a debit
func (l JournalLine) IsDebit() bool {
	return l.Debit.IsPositive()
}

// JournalEntry is a balanced set of journal lines posted to the ledger
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryNumber       string
	BusinessDate      time.Time
	PostingPeriod     string
	SourceModule      SourceModule
	SourceReferenceID string
	CorrelationID     string
	Status            JournalStatus
	Currency          string
	ExchangeRate      decimal.Decimal
	Memo              string
	Lines             []JournalLine
	ReversalOfID      *uuid.UUID
	ReversedByID      *uuid.UUID
	PostedAt          *time.Time
	VoidedAt          *time.Time
	VoidReason        string
}

// JournalDraft describes an entry to build from validated lines
type JournalDraft struct {
	TenantID          uuid.UUID
	BusinessDate      time.Time
	SourceModule      SourceModule
	SourceReferenceID string
	CorrelationID     string
	Memo              string
	CreatedBy         uuid.UUID
}

// NewJournalEntry builds a draft entry from a validated journal
func NewJournalEntry(draft JournalDraft, validated *ValidatedJournal) (*JournalEntry, error) {
	if draft.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "tenant id is required")
	}
	if !draft.SourceModule.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid source module: "+string(draft.SourceModule))
	}
	if strings.TrimSpace(draft.SourceReferenceID) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "source reference id is required")
	}
	if validated == nil || len(validated.Lines) < 2 {
		return nil, shared.NewDomainError(CodeInvalidJournalLine, "a journal entry needs at least two lines")
	}

	entry := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(draft.TenantID),
		BusinessDate:        draft.BusinessDate,
		PostingPeriod:       validated.PostingPeriod,
		SourceModule:        draft.SourceModule,
		SourceReferenceID:   draft.SourceReferenceID,
		CorrelationID:       draft.CorrelationID,
		Status:              JournalStatusDraft,
		Currency:            validated.Currency,
		ExchangeRate:        validated.ExchangeRate,
		Memo:                draft.Memo,
	}
	entry.SetCreatedBy(draft.CreatedBy)
	entry.EntryNumber = entryNumber(validated.PostingPeriod, entry.ID)

	entry.Lines = make([]JournalLine, len(validated.Lines))
	for i, l := range validated.Lines {
		l.ID = uuid.New()
		l.JournalEntryID = entry.ID
		l.TenantID = entry.TenantID
		l.SortOrder = i
		entry.Lines[i] = l
	}
	return entry, nil
}

func entryNumber(period string, id uuid.UUID) string {
	return fmt.Sprintf("JE-%s-%s", strings.ReplaceAll(period, "-", ""), strings.ToUpper(id.String()[:8]))
}

// TotalDebits sums debit amounts
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits sums credit amounts
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// IsBalanced reports whether debits equal credits exactly
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebits().Equal(e.TotalCredits())
}

// Post moves a draft entry to posted and records the domain event
func (e *JournalEntry) Post(at time.Time) error {
	if e.Status != JournalStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot post entry in %s status", e.Status))
	}
	if !e.IsBalanced() {
		return NewUnbalancedJournalError(e.TotalDebits(), e.TotalCredits())
	}
	e.Status = JournalStatusPosted
	e.PostedAt = &at
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalPostedEvent(e))
	return nil
}

// MarkVoided records that reversal has offset this entry
func (e *JournalEntry) MarkVoided(reversal *JournalEntry, reason string, at time.Time) error {
	if e.Status != JournalStatusPosted {
		return ErrEntryNotPosted
	}
	e.Status = JournalStatusVoided
	e.VoidedAt = &at
	e.VoidReason = reason
	e.ReversedByID = &reversal.ID
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalVoidedEvent(e, reversal))
	return nil
}

// Discard voids a draft. A draft never reached the ledger, so it needs no reversal.
func (e *JournalEntry) Discard(reason string, at time.Time) error {
	if e.Status != JournalStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot discard entry in %s status", e.Status))
	}
	e.Status = JournalStatusVoided
	e.VoidedAt = &at
	e.VoidReason = reason
	e.IncrementVersion()
	return nil
}

// ReversalLines mirrors the entry's lines with debit and credit swapped
func (e *JournalEntry) ReversalLines() []ProposedLine {
	lines := make([]ProposedLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, ProposedLine{
			AccountID:  l.AccountID,
			Debit:      l.Credit.StringFixed(2),
			Credit:     l.Debit.StringFixed(2),
			Memo:       strings.TrimSpace("Reversal: " + l.Memo),
			IsRounding: l.IsRounding,
			Dimensions: l.Dimensions,
		})
	}
	return lines
}

// AccountIDs returns the distinct accounts referenced by the entry
func (e *JournalEntry) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(e.Lines))
	var ids []uuid.UUID
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}
