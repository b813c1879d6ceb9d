package accounting

import (
	"context"
	"fmt"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/membership"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// onAccountPaymentTypes settle to accounts receivable rather than a cash clearing account
var onAccountPaymentTypes = map[string]struct{}{
	"on_account":    {},
	"house_account": {},
}

// MembershipAdapter posts membership dues: recognized revenue now, the deferred portion
// to deferred revenue, tax to the payable account.
type MembershipAdapter struct {
	adapterBase
}

// NewMembershipAdapter creates a MembershipAdapter
func NewMembershipAdapter(deps AdapterDeps) *MembershipAdapter {
	return &MembershipAdapter{adapterBase: newAdapterBase("accounting.membership_posting", deps)}
}

// EventTypes implements shared.EventHandler
func (a *MembershipAdapter) EventTypes() []string {
	return []string{membership.EventTypeBillingCharged}
}

// Handle implements shared.EventHandler
func (a *MembershipAdapter) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*membership.BillingChargedEvent)
	if !ok {
		return a.boundary(ctx, event, accounting.SourceMembership, event.AggregateID().String(), func(context.Context) (PostingOutcome, error) {
			return PostingOutcome{}, fmt.Errorf("unexpected event %T", event)
		})
	}
	return a.boundary(ctx, e, accounting.SourceMembership, e.ChargeID.String(), func(ctx context.Context) (PostingOutcome, error) {
		return a.Post(ctx, e)
	})
}

// Post builds and commits the dues entry
func (a *MembershipAdapter) Post(ctx context.Context, e *membership.BillingChargedEvent) (PostingOutcome, error) {
	if err := e.Validate(); err != nil {
		return PostingOutcome{}, err
	}
	plan := postingPlan{
		Source:       accounting.SourceMembership,
		Reference:    e.ChargeID.String(),
		Correlation:  e.MembershipID.String(),
		BusinessDate: e.BusinessDate,
		Currency:     e.Currency,
		Memo:         fmt.Sprintf("Membership %s dues %s", e.PlanCode, e.ChargeID),
		Dimensions:   accounting.LineDimensions{LocationID: e.LocationID, CustomerID: e.CustomerID},
	}
	return a.post(ctx, e, plan, func(ctx context.Context, scope *postingScope) error {
		return buildMembershipLines(ctx, scope, e)
	})
}

func buildMembershipLines(ctx context.Context, scope *postingScope, e *membership.BillingChargedEvent) error {
	clearing, err := membershipClearing(ctx, scope, e)
	if err != nil {
		return err
	}
	scope.lines.debit(clearing, accounting.FromMinor(e.AmountMinor), "membership dues "+e.PaymentType)

	if recognized := e.RecognizedMinor(); recognized != 0 {
		account, err := scope.fallback(accounting.SlotMembershipRevenue)
		if err != nil {
			return err
		}
		scope.lines.credit(account, accounting.FromMinor(recognized), "membership revenue")
	}
	if e.DeferredMinor != 0 {
		account, err := scope.fallback(accounting.SlotDeferredRevenue)
		if err != nil {
			return err
		}
		scope.lines.credit(account, accounting.FromMinor(e.DeferredMinor), "deferred membership revenue")
	}
	if e.TaxMinor != 0 {
		var account uuid.UUID
		if e.TaxGroupID != nil {
			mapped, err := scope.resolver.TaxGroupPayableAccount(ctx, e.TenantID(), *e.TaxGroupID)
			if err != nil {
				return err
			}
			account, err = scope.orFallback(mapped, accounting.EntityTaxGroup, e.TaxGroupID.String(), accounting.SlotSalesTaxPayable)
			if err != nil {
				return err
			}
		} else if account, err = scope.fallback(accounting.SlotSalesTaxPayable); err != nil {
			return err
		}
		scope.lines.credit(account, accounting.FromMinor(e.TaxMinor), "membership tax")
	}
	return nil
}

// membershipClearing resolves the debit side: the payment type mapping, then accounts
// receivable for on-account charges, then undeposited funds.
func membershipClearing(ctx context.Context, scope *postingScope, e *membership.BillingChargedEvent) (uuid.UUID, error) {
	code := accounting.NormalizeCode(e.PaymentType)
	mapped, err := scope.resolver.PaymentTypeClearingAccount(ctx, e.TenantID(), code)
	if err != nil {
		return uuid.Nil, err
	}
	if mapped != nil {
		return *mapped, nil
	}
	if _, ok := onAccountPaymentTypes[code]; ok {
		return scope.fallback(accounting.SlotAccountsReceivable)
	}
	return scope.orFallback(nil, accounting.EntityPaymentType, code, accounting.SlotUndepositedFunds)
}
