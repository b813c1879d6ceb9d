package accounting_test

import (
	"errors"
	"testing"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (l *ledger) manual(reference string, lines ...accounting.ProposedLine) appaccounting.PostEntryCommand {
	return appaccounting.PostEntryCommand{
		TenantID:          l.tenant,
		BusinessDate:      businessDate,
		SourceModule:      accounting.SourceManual,
		SourceReferenceID: reference,
		Memo:              "manual adjustment",
		Lines:             lines,
		ActorID:           uuid.New(),
	}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPostingService_ControlAccountsNeedPermission(t *testing.T) {
	l := newLedger(t)
	supplies := l.account("6100", "Office Supplies", accounting.AccountTypeExpense)
	bank := l.fallback(accounting.SlotOperatingBank)

	cmd := l.manual("adj-1",
		accounting.DebitLine(supplies.ID, money("25.00"), "paper"),
		accounting.CreditLine(bank, money("25.00"), "paid from bank"),
	)
	_, err := l.posting.PostEntry(l.ctx, cmd)
	var restricted *accounting.ControlAccountRestrictedError
	require.True(t, errors.As(err, &restricted), "got %v", err)
	assert.Equal(t, accounting.ControlAccountBank, restricted.ControlType)

	cmd.HasControlAccountPermission = true
	result, err := l.posting.PostEntry(l.ctx, cmd)
	require.NoError(t, err)
	assert.False(t, result.AlreadyPosted)
	assert.Equal(t, accounting.JournalStatusPosted, result.Entry.Status)
	assert.Regexp(t, `^JE-202403-`, result.Entry.EntryNumber)
}

func TestPostingService_RoundingTolerance(t *testing.T) {
	l := newLedger(t)
	l.bootstrap()
	supplies := l.account("6100", "Office Supplies", accounting.AccountTypeExpense)
	income := l.account("4800", "Other Income", accounting.AccountTypeRevenue)

	result, err := l.posting.PostEntry(l.ctx, l.manual("adj-1",
		accounting.DebitLine(supplies.ID, money("10.00"), ""),
		accounting.CreditLine(income.ID, money("9.97"), ""),
	))
	require.NoError(t, err)
	require.Len(t, result.Entry.Lines, 3)
	rounding := result.Entry.Lines[2]
	assert.True(t, rounding.IsRounding)
	assert.Equal(t, l.fallback(accounting.SlotRounding), rounding.AccountID)
	assert.True(t, rounding.Credit.Equal(money("0.03")))
	assert.True(t, result.Entry.IsBalanced())

	_, err = l.posting.PostEntry(l.ctx, l.manual("adj-2",
		accounting.DebitLine(supplies.ID, money("10.00"), ""),
		accounting.CreditLine(income.ID, money("9.90"), ""),
	))
	var unbalanced *accounting.UnbalancedJournalError
	assert.True(t, errors.As(err, &unbalanced), "got %v", err)
}

func TestPostingService_SourceReferenceIsIdempotent(t *testing.T) {
	l := newLedger(t)
	supplies := l.account("6100", "Office Supplies", accounting.AccountTypeExpense)
	income := l.account("4800", "Other Income", accounting.AccountTypeRevenue)
	cmd := l.manual("adj-1",
		accounting.DebitLine(supplies.ID, money("5.00"), ""),
		accounting.CreditLine(income.ID, money("5.00"), ""),
	)

	first, err := l.posting.PostEntry(l.ctx, cmd)
	require.NoError(t, err)
	second, err := l.posting.PostEntry(l.ctx, cmd)
	require.NoError(t, err)
	assert.True(t, second.AlreadyPosted)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	// Voiding frees the reference for a corrected posting
	_, err = l.posting.VoidJournalEntry(l.ctx, appaccounting.VoidEntryCommand{
		TenantID: l.tenant, EntryID: first.Entry.ID, Reason: "wrong amount",
	})
	require.NoError(t, err)
	third, err := l.posting.PostEntry(l.ctx, cmd)
	require.NoError(t, err)
	assert.False(t, third.AlreadyPosted)
	assert.NotEqual(t, first.Entry.ID, third.Entry.ID)
	assert.Len(t, l.entriesFor(accounting.SourceManual, "adj-1"), 2)
}

func TestPostingService_DraftOnlyMode(t *testing.T) {
	l := newLedger(t)
	supplies := l.account("6100", "Office Supplies", accounting.AccountTypeExpense)
	income := l.account("4800", "Other Income", accounting.AccountTypeRevenue)
	_, err := l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID:     l.tenant,
		AutoPostMode: ptr(accounting.AutoPostModeDraftOnly),
	})
	require.NoError(t, err)

	result, err := l.posting.PostEntry(l.ctx, l.manual("adj-1",
		accounting.DebitLine(supplies.ID, money("12.00"), ""),
		accounting.CreditLine(income.ID, money("12.00"), ""),
	))
	require.NoError(t, err)
	assert.Equal(t, accounting.JournalStatusDraft, result.Entry.Status)
	assert.Zero(t, l.outboxCount(accounting.EventTypeJournalPosted))

	posted, err := l.posting.PostDraftEntry(l.ctx, l.tenant, result.Entry.ID, uuid.New(), false)
	require.NoError(t, err)
	assert.Equal(t, accounting.JournalStatusPosted, posted.Status)
	assert.NotNil(t, posted.PostedAt)
	assert.Equal(t, int64(1), l.outboxCount(accounting.EventTypeJournalPosted))

	_, err = l.posting.PostDraftEntry(l.ctx, l.tenant, result.Entry.ID, uuid.New(), false)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	forced := l.manual("adj-2",
		accounting.DebitLine(supplies.ID, money("1.00"), ""),
		accounting.CreditLine(income.ID, money("1.00"), ""),
	)
	forced.ForcePost = true
	direct, err := l.posting.PostEntry(l.ctx, forced)
	require.NoError(t, err)
	assert.Equal(t, accounting.JournalStatusPosted, direct.Entry.Status)
}

func TestPostingService_ForeignCurrency(t *testing.T) {
	l := newLedger(t)
	supplies := l.account("6100", "Office Supplies", accounting.AccountTypeExpense)
	income := l.account("4800", "Other Income", accounting.AccountTypeRevenue)
	cmd := l.manual("fx-1",
		accounting.DebitLine(supplies.ID, money("20.00"), ""),
		accounting.CreditLine(income.ID, money("20.00"), ""),
	)
	cmd.Currency = "eur"

	_, err := l.posting.PostEntry(l.ctx, cmd)
	assert.ErrorIs(t, err, shared.NewDomainError(accounting.CodeUnsupportedCurrency, ""))

	_, err = l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID:            l.tenant,
		SupportedCurrencies: []string{"USD", "EUR"},
	})
	require.NoError(t, err)

	_, err = l.posting.PostEntry(l.ctx, cmd)
	assert.ErrorIs(t, err, accounting.ErrExchangeRateRequired)

	cmd.ExchangeRate = ptr(money("1.085"))
	result, err := l.posting.PostEntry(l.ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "EUR", result.Entry.Currency)
	assert.True(t, result.Entry.ExchangeRate.Equal(money("1.085")))
}

func TestPostingService_VoidJournalEntry(t *testing.T) {
	l := newLedger(t)
	supplies := l.account("6100", "Office Supplies", accounting.AccountTypeExpense)
	income := l.account("4800", "Other Income", accounting.AccountTypeRevenue)
	result, err := l.posting.PostEntry(l.ctx, l.manual("adj-1",
		accounting.DebitLine(supplies.ID, money("7.50"), ""),
		accounting.CreditLine(income.ID, money("7.50"), ""),
	))
	require.NoError(t, err)

	_, err = l.posting.VoidJournalEntry(l.ctx, appaccounting.VoidEntryCommand{TenantID: l.tenant, EntryID: result.Entry.ID, Reason: " "})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	reversal, err := l.posting.VoidJournalEntry(l.ctx, appaccounting.VoidEntryCommand{
		TenantID: l.tenant, EntryID: result.Entry.ID, Reason: "duplicate", VoidDate: businessDate,
	})
	require.NoError(t, err)
	assert.Equal(t, accounting.SourceReversal, reversal.SourceModule)
	require.NotNil(t, reversal.ReversalOfID)
	assert.Equal(t, result.Entry.ID, *reversal.ReversalOfID)
	assert.True(t, reversal.Lines[0].Credit.Equal(money("7.50")))
	assert.True(t, reversal.Lines[1].Debit.Equal(money("7.50")))

	original, err := l.posting.GetJournalEntry(l.ctx, l.tenant, result.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, accounting.JournalStatusVoided, original.Status)

	_, err = l.posting.VoidJournalEntry(l.ctx, appaccounting.VoidEntryCommand{TenantID: l.tenant, EntryID: result.Entry.ID, Reason: "again"})
	assert.ErrorIs(t, err, accounting.ErrEntryNotPosted)

	_, err = l.posting.VoidJournalEntry(l.ctx, appaccounting.VoidEntryCommand{TenantID: l.tenant, EntryID: uuid.New(), Reason: "missing"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPostingService_ListJournalEntries(t *testing.T) {
	l := newLedger(t)
	supplies := l.account("6100", "Office Supplies", accounting.AccountTypeExpense)
	income := l.account("4800", "Other Income", accounting.AccountTypeRevenue)
	for _, ref := range []string{"a", "b", "c"} {
		_, err := l.posting.PostEntry(l.ctx, l.manual(ref,
			accounting.DebitLine(supplies.ID, money("1.00"), ""),
			accounting.CreditLine(income.ID, money("1.00"), ""),
		))
		require.NoError(t, err)
	}

	page, err := l.posting.ListJournalEntries(l.ctx, l.tenant, accounting.JournalFilter{
		Filter: shared.Filter{PageSize: 1000},
		Period: "2024-03",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Items, 3)
}
