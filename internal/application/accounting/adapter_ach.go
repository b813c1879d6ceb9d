package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/payment"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// ACHAdapter posts the ACH lifecycle of a payment. Each stage has its own source
// reference so a payment produces at most one entry per stage.
type ACHAdapter struct {
	adapterBase
}

// NewACHAdapter creates an ACHAdapter
func NewACHAdapter(deps AdapterDeps) *ACHAdapter {
	return &ACHAdapter{adapterBase: newAdapterBase("accounting.ach_posting", deps)}
}

// EventTypes implements shared.EventHandler
func (a *ACHAdapter) EventTypes() []string {
	return []string{payment.EventTypeACHOriginated, payment.EventTypeACHSettled, payment.EventTypeACHReturned}
}

// Handle implements shared.EventHandler
func (a *ACHAdapter) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(payment.ACHEvent)
	if !ok {
		return a.boundary(ctx, event, accounting.SourceACH, event.AggregateID().String(), func(context.Context) (PostingOutcome, error) {
			return PostingOutcome{}, fmt.Errorf("unexpected event %T", event)
		})
	}
	reference := payment.ReferenceFor(e.Payment().PaymentID, e.Stage())
	return a.boundary(ctx, e, accounting.SourceACH, reference, func(ctx context.Context) (PostingOutcome, error) {
		return a.Post(ctx, e)
	})
}

// Post builds and commits the entry of one lifecycle stage:
// originated Dr ACH clearing / Cr AR, settled Dr bank / Cr ACH clearing, and returned
// Dr AR against the bank when the payment had settled, against ACH clearing otherwise.
func (a *ACHAdapter) Post(ctx context.Context, e payment.ACHEvent) (PostingOutcome, error) {
	if err := e.Validate(); err != nil {
		return PostingOutcome{}, err
	}
	p := e.Payment()
	plan := postingPlan{
		Source:       accounting.SourceACH,
		Reference:    payment.ReferenceFor(p.PaymentID, e.Stage()),
		Correlation:  p.PaymentID.String(),
		BusinessDate: p.BusinessDate,
		Currency:     p.Currency,
		Memo:         fmt.Sprintf("ACH %s %s", e.Stage(), p.PaymentID),
		Dimensions:   accounting.LineDimensions{CustomerID: p.CustomerID},
	}
	amount := accounting.FromMinor(p.AmountMinor)

	return a.post(ctx, e, plan, func(ctx context.Context, scope *postingScope) error {
		var debitSlot, creditSlot accounting.FallbackSlot
		switch e.Stage() {
		case payment.ACHStageOriginated:
			debitSlot, creditSlot = accounting.SlotACHClearing, accounting.SlotAccountsReceivable
		case payment.ACHStageSettled:
			debitSlot, creditSlot = accounting.SlotOperatingBank, accounting.SlotACHClearing
		case payment.ACHStageReturned:
			settled, err := hasSettled(ctx, scope.repos, e.TenantID(), p.PaymentID)
			if err != nil {
				return err
			}
			debitSlot, creditSlot = accounting.SlotAccountsReceivable, accounting.SlotACHClearing
			if settled {
				creditSlot = accounting.SlotOperatingBank
			}
		default:
			return fmt.Errorf("unknown ach stage %q", e.Stage())
		}

		debit, err := scope.fallback(debitSlot)
		if err != nil {
			return err
		}
		credit, err := scope.fallback(creditSlot)
		if err != nil {
			return err
		}
		scope.lines.debit(debit, amount, string(debitSlot))
		scope.lines.credit(credit, amount, string(creditSlot))
		return nil
	})
}

func hasSettled(ctx context.Context, repos TransactionalRepositories, tenantID, paymentID uuid.UUID) (bool, error) {
	_, err := repos.Journals().FindActiveBySource(ctx, tenantID, accounting.SourceACH, payment.ReferenceFor(paymentID, payment.ACHStageSettled))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, shared.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
