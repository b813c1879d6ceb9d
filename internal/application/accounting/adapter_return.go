package accounting

import (
	"context"
	"fmt"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/pos"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// ReturnAdapter posts merchandise refunds. The clearing credit always equals the refund
// total; whatever the per-line debits do not cover lands on uncategorized revenue.
type ReturnAdapter struct {
	adapterBase
}

// NewReturnAdapter creates a ReturnAdapter
func NewReturnAdapter(deps AdapterDeps) *ReturnAdapter {
	return &ReturnAdapter{adapterBase: newAdapterBase("accounting.return_posting", deps)}
}

// EventTypes implements shared.EventHandler
func (a *ReturnAdapter) EventTypes() []string {
	return []string{pos.EventTypeOrderReturned}
}

// Handle implements shared.EventHandler
func (a *ReturnAdapter) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*pos.OrderReturnedEvent)
	if !ok {
		return a.boundary(ctx, event, accounting.SourcePOSReturn, event.AggregateID().String(), func(context.Context) (PostingOutcome, error) {
			return PostingOutcome{}, fmt.Errorf("unexpected event %T", event)
		})
	}
	return a.boundary(ctx, e, accounting.SourcePOSReturn, e.ReturnID.String(), func(ctx context.Context) (PostingOutcome, error) {
		return a.Post(ctx, e)
	})
}

// Post builds and commits the refund entry
func (a *ReturnAdapter) Post(ctx context.Context, e *pos.OrderReturnedEvent) (PostingOutcome, error) {
	if err := e.Validate(); err != nil {
		return PostingOutcome{}, err
	}
	plan := postingPlan{
		Source:       accounting.SourcePOSReturn,
		Reference:    e.ReturnID.String(),
		Correlation:  e.OrderID.String(),
		BusinessDate: e.BusinessDate,
		Currency:     e.Currency,
		Memo:         fmt.Sprintf("Return %s on order %s", e.ReturnID, e.OrderID),
		Dimensions:   accounting.LineDimensions{LocationID: e.LocationID},
	}
	return a.post(ctx, e, plan, func(ctx context.Context, scope *postingScope) error {
		return buildReturnLines(ctx, scope, e)
	})
}

func buildReturnLines(ctx context.Context, scope *postingScope, e *pos.OrderReturnedEvent) error {
	tenant := e.TenantID()
	resolver := scope.resolver

	clearing, err := resolver.PaymentTypeClearingAccount(ctx, tenant, e.PaymentType)
	if err != nil {
		return err
	}
	clearingID, err := scope.orFallback(clearing, accounting.EntityPaymentType, accounting.NormalizeCode(e.PaymentType), accounting.SlotUndepositedFunds)
	if err != nil {
		return err
	}
	refund := accounting.FromMinor(e.RefundTotalMinor)
	scope.lines.credit(clearingID, refund, "refund "+e.PaymentType)

	var subIDs, taxIDs []uuid.UUID
	for _, l := range e.Lines {
		if l.SubDepartmentID != nil {
			subIDs = append(subIDs, *l.SubDepartmentID)
		}
		if l.TaxGroupID != nil {
			taxIDs = append(taxIDs, *l.TaxGroupID)
		}
	}
	subDepartments, err := resolver.SubDepartmentAccountsFor(ctx, tenant, subIDs)
	if err != nil {
		return err
	}
	taxGroups, err := resolver.TaxGroupAccountsFor(ctx, tenant, taxIDs)
	if err != nil {
		return err
	}

	for _, l := range e.Lines {
		if l.AmountMinor != 0 {
			account, ok, err := returnsAccount(scope, l, subDepartments)
			if err != nil {
				return err
			}
			if ok {
				scope.lines.debit(account, accounting.FromMinor(l.AmountMinor), "return "+l.LineID, withSubDepartment(l.SubDepartmentID))
			}
		}
		if l.TaxMinor != 0 {
			account, err := taxAccount(scope, l.TaxGroupID, taxGroups)
			if err != nil {
				return err
			}
			scope.lines.debit(account, accounting.FromMinor(l.TaxMinor), "return tax "+l.LineID, withSubDepartment(l.SubDepartmentID))
		}
	}

	// Safety net: the entry must balance to the refund total exactly
	remainder := refund.Sub(scope.lines.debits)
	if !remainder.IsZero() {
		account, err := scope.fallback(accounting.SlotUncategorizedRevenue)
		if err != nil {
			return err
		}
		scope.lines.debit(account, remainder, "unallocated refund")
		scope.warn(accounting.EntityConfiguration, "refund_remainder", account,
			fmt.Sprintf("refund lines differ from the refund total by %s", remainder.StringFixed(2)))
	}
	return nil
}

// returnsAccount picks the contra-revenue account for a returned line: the sub-department's
// returns account, otherwise the returns slot. ok is false when neither is available and
// the amount is left to the safety net.
func returnsAccount(scope *postingScope, l pos.ReturnLine, subDepartments map[uuid.UUID]*accounting.SubDepartmentMapping) (uuid.UUID, bool, error) {
	entityID := "line " + l.LineID
	if l.SubDepartmentID != nil {
		entityID = l.SubDepartmentID.String()
		if m, ok := subDepartments[*l.SubDepartmentID]; ok && m.ReturnsAccountID != nil {
			return *m.ReturnsAccountID, true, nil
		}
	}
	slot := scope.settings.Fallback(accounting.SlotReturns)
	if slot == nil {
		return uuid.Nil, false, nil
	}
	scope.warn(accounting.EntitySubDepartment, entityID, *slot, "no returns account mapped, posted to returns fallback")
	return *slot, true, nil
}
