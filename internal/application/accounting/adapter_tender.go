package accounting

import (
	"context"
	"fmt"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/pos"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TenderAdapter posts one journal entry per captured tender. Order-level amounts are
// allocated by the tender's share of the order total, so the entries of a split-tender
// order add up to the whole order.
type TenderAdapter struct {
	adapterBase
}

// NewTenderAdapter creates a TenderAdapter
func NewTenderAdapter(deps AdapterDeps) *TenderAdapter {
	return &TenderAdapter{adapterBase: newAdapterBase("accounting.tender_posting", deps)}
}

// EventTypes implements shared.EventHandler
func (a *TenderAdapter) EventTypes() []string {
	return []string{pos.EventTypeTenderRecorded}
}

// Handle implements shared.EventHandler. Posting failures are recorded in the unmapped
// event log and never returned.
func (a *TenderAdapter) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*pos.TenderRecordedEvent)
	if !ok {
		return a.boundary(ctx, event, accounting.SourcePOS, event.AggregateID().String(), func(context.Context) (PostingOutcome, error) {
			return PostingOutcome{}, fmt.Errorf("unexpected event %T", event)
		})
	}
	return a.boundary(ctx, e, tenderSource(e), e.TenderID.String(), func(ctx context.Context) (PostingOutcome, error) {
		return a.Post(ctx, e)
	})
}

func tenderSource(e *pos.TenderRecordedEvent) accounting.SourceModule {
	if e.Venue == pos.VenueFnB {
		return accounting.SourceFnB
	}
	return accounting.SourcePOS
}

// Post builds and commits the tender's entry
func (a *TenderAdapter) Post(ctx context.Context, e *pos.TenderRecordedEvent) (PostingOutcome, error) {
	if err := e.Validate(); err != nil {
		return PostingOutcome{}, err
	}
	plan := postingPlan{
		Source:       tenderSource(e),
		Reference:    e.TenderID.String(),
		Correlation:  e.OrderID.String(),
		BusinessDate: e.BusinessDate,
		Currency:     e.Currency,
		Memo:         fmt.Sprintf("Tender %s on order %s", e.TenderID, e.OrderID),
		Dimensions: accounting.LineDimensions{
			LocationID: e.LocationID,
			CustomerID: e.CustomerID,
			TerminalID: e.TerminalID,
			Channel:    e.Channel,
		},
	}
	return a.post(ctx, e, plan, func(ctx context.Context, scope *postingScope) error {
		return buildTenderLines(ctx, scope, e)
	})
}

func buildTenderLines(ctx context.Context, scope *postingScope, e *pos.TenderRecordedEvent) error {
	tenant := e.TenantID()
	resolver := scope.resolver
	alloc := newAllocator(e.PriorTenderedMinor, e.AmountMinor, e.Order.TotalMinor)

	clearing, err := resolver.PaymentTypeClearingAccount(ctx, tenant, e.PaymentType)
	if err != nil {
		return err
	}
	clearingID, err := scope.orFallback(clearing, accounting.EntityPaymentType, accounting.NormalizeCode(e.PaymentType), accounting.SlotUndepositedFunds)
	if err != nil {
		return err
	}
	scope.lines.debit(clearingID, accounting.FromMinor(e.AmountMinor+e.TipMinor+e.SurchargeMinor), "tender "+e.PaymentType)

	subDepartments, err := resolver.SubDepartmentAccountsFor(ctx, tenant, orderSubDepartments(e.Order))
	if err != nil {
		return err
	}
	taxGroups, err := resolver.TaxGroupAccountsFor(ctx, tenant, orderTaxGroups(e.Order))
	if err != nil {
		return err
	}

	for _, line := range e.Order.Lines {
		if err := tenderLine(ctx, scope, alloc, line, subDepartments, taxGroups); err != nil {
			return err
		}
	}

	for _, d := range e.Order.Discounts {
		account, err := discountAccount(ctx, scope, tenant, d.Classification)
		if err != nil {
			return err
		}
		scope.lines.debit(account, alloc.share(d.AmountMinor), "order discount", withDiscountClassification(d.Classification))
	}

	if e.Order.ServiceChargeMinor != 0 {
		account, err := scope.fallback(accounting.SlotServiceChargeRevenue)
		if err != nil {
			return err
		}
		scope.lines.credit(account, alloc.share(e.Order.ServiceChargeMinor), "service charge")
	}
	if e.TipMinor != 0 {
		account, err := scope.fallback(accounting.SlotTipsPayable)
		if err != nil {
			return err
		}
		scope.lines.credit(account, accounting.FromMinor(e.TipMinor), "tips")
	}
	if e.SurchargeMinor != 0 {
		account, err := scope.fallback(accounting.SlotSurchargeRevenue)
		if err != nil {
			return err
		}
		scope.lines.credit(account, accounting.FromMinor(e.SurchargeMinor), "surcharge")
	}
	return nil
}

// tenderLine allocates one order line: revenue (split over package components),
// price override, line discount, tax and cost of goods
func tenderLine(
	ctx context.Context,
	scope *postingScope,
	alloc allocator,
	line pos.OrderLine,
	subDepartments map[uuid.UUID]*accounting.SubDepartmentMapping,
	taxGroups map[uuid.UUID]uuid.UUID,
) error {
	revenue := alloc.share(line.RegularPriceMinor)
	if err := creditRevenue(scope, line, revenue, subDepartments); err != nil {
		return err
	}

	if line.PriceOverrideMinor != 0 {
		account, err := scope.fallback(accounting.SlotPriceOverrideExpense)
		if err != nil {
			return err
		}
		scope.lines.debit(account, alloc.share(line.PriceOverrideMinor), "price override "+line.LineID, withSubDepartment(line.SubDepartmentID))
	}

	if line.LineDiscountMinor != 0 {
		account, err := discountAccount(ctx, scope, scope.unmapped.TenantID, line.DiscountClassification)
		if err != nil {
			return err
		}
		scope.lines.debit(account, alloc.share(line.LineDiscountMinor), "line discount "+line.LineID,
			withSubDepartment(line.SubDepartmentID), withDiscountClassification(line.DiscountClassification))
	}

	if line.TaxMinor != 0 {
		account, err := taxAccount(scope, line.TaxGroupID, taxGroups)
		if err != nil {
			return err
		}
		scope.lines.credit(account, alloc.share(line.TaxMinor), "tax "+line.LineID, withSubDepartment(line.SubDepartmentID))
	}

	if line.CostMinor > 0 {
		postCOGS(scope, line, alloc.share(line.CostMinor), subDepartments)
	}
	return nil
}

func creditRevenue(scope *postingScope, line pos.OrderLine, revenue decimal.Decimal, subDepartments map[uuid.UUID]*accounting.SubDepartmentMapping) error {
	if len(line.Components) > 0 {
		weights := make([]int64, len(line.Components))
		for i, c := range line.Components {
			weights[i] = c.RevenueMinor
		}
		if parts := splitByWeight(revenue, weights); parts != nil {
			for i, c := range line.Components {
				subDept := c.SubDepartmentID
				if subDept == nil {
					subDept = line.SubDepartmentID
				}
				account, err := revenueAccount(scope, subDept, line.LineID, subDepartments)
				if err != nil {
					return err
				}
				scope.lines.credit(account, parts[i], "package revenue "+line.LineID, withSubDepartment(subDept))
			}
			return nil
		}
	}

	account, err := revenueAccount(scope, line.SubDepartmentID, line.LineID, subDepartments)
	if err != nil {
		return err
	}
	scope.lines.credit(account, revenue, "revenue "+line.LineID, withSubDepartment(line.SubDepartmentID))
	return nil
}

// postCOGS relieves inventory when the sub-department is set up for it. Cost on a
// sub-department without COGS accounts is skipped and flagged.
func postCOGS(scope *postingScope, line pos.OrderLine, cost decimal.Decimal, subDepartments map[uuid.UUID]*accounting.SubDepartmentMapping) {
	if line.SubDepartmentID == nil {
		return
	}
	m, ok := subDepartments[*line.SubDepartmentID]
	if !ok {
		return
	}
	if !m.PostsCOGS() {
		scope.warn(accounting.EntityCOGS, line.SubDepartmentID.String(), m.RevenueAccountID,
			"sub-department has cost but no cost of goods or inventory account, cost not posted")
		return
	}
	scope.lines.debit(*m.CostOfGoodsAccountID, cost, "cost of goods "+line.LineID, withSubDepartment(line.SubDepartmentID))
	scope.lines.credit(*m.InventoryAccountID, cost, "inventory "+line.LineID, withSubDepartment(line.SubDepartmentID))
}

func revenueAccount(scope *postingScope, subDept *uuid.UUID, lineID string, subDepartments map[uuid.UUID]*accounting.SubDepartmentMapping) (uuid.UUID, error) {
	var mapped *uuid.UUID
	entityID := "line " + lineID
	if subDept != nil {
		entityID = subDept.String()
		if m, ok := subDepartments[*subDept]; ok {
			id := m.RevenueAccountID
			mapped = &id
		}
	}
	return scope.orFallback(mapped, accounting.EntitySubDepartment, entityID, accounting.SlotUncategorizedRevenue)
}

func taxAccount(scope *postingScope, taxGroup *uuid.UUID, taxGroups map[uuid.UUID]uuid.UUID) (uuid.UUID, error) {
	if taxGroup == nil {
		return scope.fallback(accounting.SlotSalesTaxPayable)
	}
	var mapped *uuid.UUID
	if id, ok := taxGroups[*taxGroup]; ok {
		mapped = &id
	}
	return scope.orFallback(mapped, accounting.EntityTaxGroup, taxGroup.String(), accounting.SlotSalesTaxPayable)
}

// discountAccount resolves a discount classification. Unclassified discounts go to the
// discount slot without a warning.
func discountAccount(ctx context.Context, scope *postingScope, tenant uuid.UUID, classification string) (uuid.UUID, error) {
	code := accounting.NormalizeCode(classification)
	if code == "" {
		return scope.fallback(accounting.SlotDiscount)
	}
	mapped, err := scope.resolver.DiscountContraAccount(ctx, tenant, code)
	if err != nil {
		return uuid.Nil, err
	}
	return scope.orFallback(mapped, accounting.EntityDiscountClassification, code, accounting.SlotDiscount)
}

func orderSubDepartments(o pos.OrderSnapshot) []uuid.UUID {
	var ids []uuid.UUID
	for _, l := range o.Lines {
		if l.SubDepartmentID != nil {
			ids = append(ids, *l.SubDepartmentID)
		}
		for _, c := range l.Components {
			if c.SubDepartmentID != nil {
				ids = append(ids, *c.SubDepartmentID)
			}
		}
	}
	return ids
}

func orderTaxGroups(o pos.OrderSnapshot) []uuid.UUID {
	var ids []uuid.UUID
	for _, l := range o.Lines {
		if l.TaxGroupID != nil {
			ids = append(ids, *l.TaxGroupID)
		}
	}
	return ids
}
