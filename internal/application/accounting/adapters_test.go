package accounting_test

import (
	"testing"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/membership"
	"github.com/erp/posting/internal/domain/payment"
	"github.com/erp/posting/internal/domain/pos"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReturnAdapter_SafetyNetBalancesToRefund(t *testing.T) {
	l := newLedger(t)
	sales := l.account("4020", "Retail Sales", accounting.AccountTypeRevenue)
	returns := l.account("4025", "Retail Returns", accounting.AccountTypeRevenue)
	subDepartment := uuid.New()
	_, err := l.mappings.SaveSubDepartmentMapping(l.ctx, appaccounting.SubDepartmentMappingCommand{
		TenantID:         l.tenant,
		SubDepartmentID:  subDepartment,
		RevenueAccountID: sales.ID,
		ReturnsAccountID: &returns.ID,
	})
	require.NoError(t, err)

	e := pos.NewOrderReturnedEvent(l.tenant, uuid.New(), uuid.New())
	e.BusinessDate = businessDate
	e.PaymentType = "cash"
	e.RefundTotalMinor = 5000
	e.Lines = []pos.ReturnLine{{LineID: "L1", SubDepartmentID: &subDepartment, AmountMinor: 4000, TaxMinor: 300}}
	require.NoError(t, appaccounting.NewReturnAdapter(l.deps).Handle(l.ctx, e))

	entry := l.activeEntry(accounting.SourcePOSReturn, e.ReturnID.String())
	entries := []*accounting.JournalEntry{entry}
	assert.True(t, entry.IsBalanced())
	assert.Equal(t, "-50.00", balanceOf(entries, l.fallback(accounting.SlotUndepositedFunds)))
	assert.Equal(t, "40.00", balanceOf(entries, returns.ID))
	assert.Equal(t, "3.00", balanceOf(entries, l.fallback(accounting.SlotSalesTaxPayable)))
	assert.Equal(t, "7.00", balanceOf(entries, l.fallback(accounting.SlotUncategorizedRevenue)))

	rows := l.unmappedRows(accounting.UnmappedFilter{EntityType: accounting.EntityConfiguration})
	require.Len(t, rows, 1)
	assert.Equal(t, "refund_remainder", rows[0].EntityID)
	assert.Contains(t, rows[0].Reason, "7.00")
}

func TestReturnAdapter_UnmappedLineUsesReturnsFallback(t *testing.T) {
	l := newLedger(t)
	e := pos.NewOrderReturnedEvent(l.tenant, uuid.New(), uuid.New())
	e.BusinessDate = businessDate
	e.PaymentType = "cash"
	e.RefundTotalMinor = 1500
	e.Lines = []pos.ReturnLine{{LineID: "L2", AmountMinor: 1500}}
	require.NoError(t, appaccounting.NewReturnAdapter(l.deps).Handle(l.ctx, e))

	entries := []*accounting.JournalEntry{l.activeEntry(accounting.SourcePOSReturn, e.ReturnID.String())}
	assert.Equal(t, "15.00", balanceOf(entries, l.fallback(accounting.SlotReturns)))
	assert.Equal(t, "0.00", balanceOf(entries, l.fallback(accounting.SlotUncategorizedRevenue)))

	rows := l.unmappedRows(accounting.UnmappedFilter{EntityType: accounting.EntitySubDepartment})
	require.Len(t, rows, 1)
	assert.Equal(t, "line L2", rows[0].EntityID)
}

func TestVoidAdapter_ReversesEveryTenderOfTheOrder(t *testing.T) {
	l := newLedger(t)
	tenders := appaccounting.NewTenderAdapter(l.deps)
	voids := appaccounting.NewVoidAdapter(l.deps)
	order := uuid.New()
	snapshot := pos.OrderSnapshot{TotalMinor: 4000, Lines: []pos.OrderLine{{LineID: "L1", RegularPriceMinor: 4000}}}

	first := l.tender(order, "cash", 1500, snapshot)
	second := l.tender(order, "cash", 2500, snapshot)
	require.NoError(t, tenders.Handle(l.ctx, first))
	require.NoError(t, tenders.Handle(l.ctx, second))

	voidDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	voided := pos.NewOrderVoidedEvent(l.tenant, order)
	voided.BusinessDate = voidDate
	voided.Reason = "customer walked out"
	require.NoError(t, voids.Handle(l.ctx, voided))

	for _, tender := range []*pos.TenderRecordedEvent{first, second} {
		history := l.entriesFor(accounting.SourcePOS, tender.TenderID.String())
		require.Len(t, history, 1)
		original := history[0]
		assert.Equal(t, accounting.JournalStatusVoided, original.Status)
		assert.Equal(t, "customer walked out", original.VoidReason)
		require.NotNil(t, original.ReversedByID)

		reversals := l.entriesFor(accounting.SourceReversal, original.ID.String())
		require.Len(t, reversals, 1)
		reversal := reversals[0]
		assert.Equal(t, *original.ReversedByID, reversal.ID)
		assert.Equal(t, "2024-04", reversal.PostingPeriod)
		assert.Equal(t, order.String(), reversal.CorrelationID)
		for _, account := range original.AccountIDs() {
			assert.Equal(t, "0.00", balanceOf([]*accounting.JournalEntry{original, reversal}, account))
		}
	}
	assert.Equal(t, int64(2), l.outboxCount(accounting.EventTypeJournalVoided))

	// Redelivery finds nothing left to reverse
	require.NoError(t, voids.Handle(l.ctx, voided))
	processed := l.logs.FilterMessage("event processed").FilterField(zap.String("consumer", "accounting.void_posting")).All()
	require.Len(t, processed, 2)
	assert.Equal(t, appaccounting.OutcomeReversed, processed[0].ContextMap()["outcome"])
	assert.Equal(t, appaccounting.OutcomeSkipped, processed[1].ContextMap()["outcome"])
	assert.Empty(t, l.unmappedRows(accounting.UnmappedFilter{Severity: accounting.SeverityCritical}))
}

func TestTenderAdapter_VoidedTenderIsNotPostedAgain(t *testing.T) {
	l := newLedger(t)
	tenders := appaccounting.NewTenderAdapter(l.deps)
	order := uuid.New()
	snapshot := pos.OrderSnapshot{TotalMinor: 2000, Lines: []pos.OrderLine{{LineID: "L1", RegularPriceMinor: 2000}}}
	tender := l.tender(order, "cash", 2000, snapshot)
	require.NoError(t, tenders.Handle(l.ctx, tender))

	voided := pos.NewOrderVoidedEvent(l.tenant, order)
	voided.BusinessDate = businessDate
	require.NoError(t, appaccounting.NewVoidAdapter(l.deps).Handle(l.ctx, voided))

	// The same tender arrives again under a fresh event id
	again := pos.NewTenderRecordedEvent(l.tenant, order, tender.TenderID)
	again.BusinessDate = tender.BusinessDate
	again.PaymentType = tender.PaymentType
	again.AmountMinor = tender.AmountMinor
	again.Order = tender.Order
	require.NotEqual(t, tender.EventID(), again.EventID())
	require.NoError(t, tenders.Handle(l.ctx, again))

	history := l.entriesFor(accounting.SourcePOS, tender.TenderID.String())
	require.Len(t, history, 1)
	assert.Equal(t, accounting.JournalStatusVoided, history[0].Status)
	assert.Len(t, l.entriesFor(accounting.SourceReversal, history[0].ID.String()), 1)

	processed := l.logs.FilterMessage("event processed").FilterField(zap.String("consumer", tenders.ConsumerName())).All()
	require.Len(t, processed, 2)
	assert.Equal(t, appaccounting.OutcomeSkipped, processed[1].ContextMap()["outcome"])
	assert.Empty(t, l.unmappedRows(accounting.UnmappedFilter{Severity: accounting.SeverityCritical}))
}

func TestVoidAdapter_DiscardsDraftEntries(t *testing.T) {
	l := newLedger(t)
	l.bootstrap()
	_, err := l.settings.UpdateSettings(l.ctx, appaccounting.UpdateSettingsCommand{
		TenantID:     l.tenant,
		AutoPostMode: ptr(accounting.AutoPostModeDraftOnly),
	})
	require.NoError(t, err)

	order := uuid.New()
	tender := l.tender(order, "cash", 1800, pos.OrderSnapshot{TotalMinor: 1800, Lines: []pos.OrderLine{{LineID: "L1", RegularPriceMinor: 1800}}})
	require.NoError(t, appaccounting.NewTenderAdapter(l.deps).Handle(l.ctx, tender))
	require.Equal(t, accounting.JournalStatusDraft, l.activeEntry(accounting.SourcePOS, tender.TenderID.String()).Status)

	voided := pos.NewOrderVoidedEvent(l.tenant, order)
	voided.BusinessDate = businessDate
	voided.Reason = "wrong table"
	require.NoError(t, appaccounting.NewVoidAdapter(l.deps).Handle(l.ctx, voided))

	history := l.entriesFor(accounting.SourcePOS, tender.TenderID.String())
	require.Len(t, history, 1)
	assert.Equal(t, accounting.JournalStatusVoided, history[0].Status)
	assert.Equal(t, "wrong table", history[0].VoidReason)
	assert.Nil(t, history[0].ReversedByID)
	assert.Empty(t, l.entriesFor(accounting.SourceReversal, history[0].ID.String()))
	assert.Equal(t, 1, l.logs.FilterMessage("draft entries discarded").Len())
	assert.Empty(t, l.unmappedRows(accounting.UnmappedFilter{Severity: accounting.SeverityCritical}))
}

func TestVoidAdapter_NothingPostedIsNoop(t *testing.T) {
	l := newLedger(t)
	voided := pos.NewOrderVoidedEvent(l.tenant, uuid.New())
	voided.BusinessDate = businessDate
	require.NoError(t, appaccounting.NewVoidAdapter(l.deps).Handle(l.ctx, voided))

	processed := l.logs.FilterMessage("event processed").All()
	require.Len(t, processed, 1)
	assert.Equal(t, appaccounting.OutcomeSkipped, processed[0].ContextMap()["outcome"])
	assert.Empty(t, l.unmappedRows(accounting.UnmappedFilter{}))
}

func TestVoidAdapter_FailedReversalDoesNotStopTheOthers(t *testing.T) {
	l := newLedger(t)
	card := l.account("1110", "Card Clearing", accounting.AccountTypeAsset)
	_, err := l.mappings.SavePaymentTypeMapping(l.ctx, l.tenant, "visa", card.ID)
	require.NoError(t, err)

	tenders := appaccounting.NewTenderAdapter(l.deps)
	order := uuid.New()
	snapshot := pos.OrderSnapshot{TotalMinor: 2000, Lines: []pos.OrderLine{{LineID: "L1", RegularPriceMinor: 2000}}}
	byCard := l.tender(order, "visa", 1000, snapshot)
	byCash := l.tender(order, "cash", 1000, snapshot)
	require.NoError(t, tenders.Handle(l.ctx, byCard))
	require.NoError(t, tenders.Handle(l.ctx, byCash))

	_, err = l.accounts.DeactivateAccount(l.ctx, l.tenant, card.ID, true, uuid.Nil)
	require.NoError(t, err)

	voided := pos.NewOrderVoidedEvent(l.tenant, order)
	voided.BusinessDate = businessDate
	require.NoError(t, appaccounting.NewVoidAdapter(l.deps).Handle(l.ctx, voided))

	cardEntry := l.activeEntry(accounting.SourcePOS, byCard.TenderID.String())
	assert.Equal(t, accounting.JournalStatusPosted, cardEntry.Status)
	cashHistory := l.entriesFor(accounting.SourcePOS, byCash.TenderID.String())
	require.Len(t, cashHistory, 1)
	assert.Equal(t, accounting.JournalStatusVoided, cashHistory[0].Status)

	rows := l.unmappedRows(accounting.UnmappedFilter{Severity: accounting.SeverityCritical})
	require.Len(t, rows, 1)
	assert.Equal(t, accounting.EntityJournal, rows[0].EntityType)
	assert.Equal(t, cardEntry.ID.String(), rows[0].EntityID)
	assert.Contains(t, rows[0].Reason, "reversal failed")
}

func TestMembershipAdapter_OnAccountDues(t *testing.T) {
	l := newLedger(t)
	e := membership.NewBillingChargedEvent(l.tenant, uuid.New(), uuid.New())
	e.BusinessDate = businessDate
	e.PlanCode = "GOLF-ANNUAL"
	e.PaymentType = "On_Account"
	e.AmountMinor = 11000
	e.TaxMinor = 1000
	e.DeferredMinor = 4000
	require.NoError(t, appaccounting.NewMembershipAdapter(l.deps).Handle(l.ctx, e))

	entry := l.activeEntry(accounting.SourceMembership, e.ChargeID.String())
	entries := []*accounting.JournalEntry{entry}
	assert.Equal(t, e.MembershipID.String(), entry.CorrelationID)
	assert.Equal(t, "110.00", balanceOf(entries, l.fallback(accounting.SlotAccountsReceivable)))
	assert.Equal(t, "-60.00", balanceOf(entries, l.fallback(accounting.SlotMembershipRevenue)))
	assert.Equal(t, "-40.00", balanceOf(entries, l.fallback(accounting.SlotDeferredRevenue)))
	assert.Equal(t, "-10.00", balanceOf(entries, l.fallback(accounting.SlotSalesTaxPayable)))
	assert.Empty(t, l.unmappedRows(accounting.UnmappedFilter{}))
}

func TestMembershipAdapter_MappedTaxGroupAndUnmappedPayment(t *testing.T) {
	l := newLedger(t)
	clubTax := l.account("2220", "Club Dues Tax", accounting.AccountTypeLiability)
	taxGroup := uuid.New()
	_, err := l.mappings.SaveTaxGroupMapping(l.ctx, l.tenant, taxGroup, clubTax.ID)
	require.NoError(t, err)

	e := membership.NewBillingChargedEvent(l.tenant, uuid.New(), uuid.New())
	e.BusinessDate = businessDate
	e.PaymentType = "card"
	e.AmountMinor = 5500
	e.TaxMinor = 500
	e.TaxGroupID = &taxGroup
	require.NoError(t, appaccounting.NewMembershipAdapter(l.deps).Handle(l.ctx, e))

	entries := []*accounting.JournalEntry{l.activeEntry(accounting.SourceMembership, e.ChargeID.String())}
	assert.Equal(t, "55.00", balanceOf(entries, l.fallback(accounting.SlotUndepositedFunds)))
	assert.Equal(t, "-5.00", balanceOf(entries, clubTax.ID))

	rows := l.unmappedRows(accounting.UnmappedFilter{})
	require.Len(t, rows, 1)
	assert.Equal(t, accounting.EntityPaymentType, rows[0].EntityType)
}

func TestACHAdapter_ReturnAfterSettlementHitsBank(t *testing.T) {
	l := newLedger(t)
	adapter := appaccounting.NewACHAdapter(l.deps)
	paymentID := uuid.New()

	require.NoError(t, adapter.Handle(l.ctx, payment.NewACHOriginatedEvent(l.tenant, paymentID, 10000, businessDate)))
	require.NoError(t, adapter.Handle(l.ctx, payment.NewACHSettledEvent(l.tenant, paymentID, 10000, businessDate.AddDate(0, 0, 2))))
	require.NoError(t, adapter.Handle(l.ctx, payment.NewACHReturnedEvent(l.tenant, paymentID, 10000, businessDate.AddDate(0, 0, 5), "R01")))

	var entries []*accounting.JournalEntry
	for _, stage := range []payment.ACHStage{payment.ACHStageOriginated, payment.ACHStageSettled, payment.ACHStageReturned} {
		entries = append(entries, l.activeEntry(accounting.SourceACH, payment.ReferenceFor(paymentID, stage)))
	}
	returned := []*accounting.JournalEntry{entries[2]}
	assert.Equal(t, "100.00", balanceOf(returned, l.fallback(accounting.SlotAccountsReceivable)))
	assert.Equal(t, "-100.00", balanceOf(returned, l.fallback(accounting.SlotOperatingBank)))

	assert.Equal(t, "0.00", balanceOf(entries, l.fallback(accounting.SlotACHClearing)))
	assert.Equal(t, "0.00", balanceOf(entries, l.fallback(accounting.SlotOperatingBank)))
	assert.Equal(t, "0.00", balanceOf(entries, l.fallback(accounting.SlotAccountsReceivable)))
}

func TestACHAdapter_ReturnBeforeSettlementHitsClearing(t *testing.T) {
	l := newLedger(t)
	adapter := appaccounting.NewACHAdapter(l.deps)
	paymentID := uuid.New()

	originated := payment.NewACHOriginatedEvent(l.tenant, paymentID, 4200, businessDate)
	require.NoError(t, adapter.Handle(l.ctx, originated))
	require.NoError(t, adapter.Handle(l.ctx, originated))
	require.NoError(t, adapter.Handle(l.ctx, payment.NewACHReturnedEvent(l.tenant, paymentID, 4200, businessDate.AddDate(0, 0, 1), "R02")))

	assert.Len(t, l.entriesFor(accounting.SourceACH, payment.ReferenceFor(paymentID, payment.ACHStageOriginated)), 1)
	returned := []*accounting.JournalEntry{l.activeEntry(accounting.SourceACH, payment.ReferenceFor(paymentID, payment.ACHStageReturned))}
	assert.Equal(t, "-42.00", balanceOf(returned, l.fallback(accounting.SlotACHClearing)))
	assert.Equal(t, "0.00", balanceOf(returned, l.fallback(accounting.SlotOperatingBank)))
}
