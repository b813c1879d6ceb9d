package accounting

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/pos"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// voidedSources are the modules whose entries an order void reverses
var voidedSources = []accounting.SourceModule{accounting.SourcePOS, accounting.SourceFnB}

// VoidAdapter reverses every posted tender entry of a voided order
type VoidAdapter struct {
	adapterBase
	reversal *ReversalService
}

// NewVoidAdapter creates a VoidAdapter
func NewVoidAdapter(deps AdapterDeps) *VoidAdapter {
	return &VoidAdapter{
		adapterBase: newAdapterBase("accounting.void_posting", deps),
		reversal:    deps.Reversal,
	}
}

// EventTypes implements shared.EventHandler
func (a *VoidAdapter) EventTypes() []string {
	return []string{pos.EventTypeOrderVoided}
}

// Handle implements shared.EventHandler
func (a *VoidAdapter) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*pos.OrderVoidedEvent)
	if !ok {
		return a.boundary(ctx, event, accounting.SourceReversal, event.AggregateID().String(), func(context.Context) (PostingOutcome, error) {
			return PostingOutcome{}, fmt.Errorf("unexpected event %T", event)
		})
	}
	return a.boundary(ctx, e, accounting.SourceReversal, e.OrderID.String(), func(ctx context.Context) (PostingOutcome, error) {
		return a.Post(ctx, e)
	})
}

// Post reverses the order's posted entries one by one and discards its drafts. A failed
// reversal is recorded as a critical unmapped row and the remaining entries are still
// handled. An order with nothing posted or drafted is a no-op.
func (a *VoidAdapter) Post(ctx context.Context, e *pos.OrderVoidedEvent) (PostingOutcome, error) {
	if err := e.Validate(); err != nil {
		return PostingOutcome{}, err
	}
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "order voided"
	}
	actor := uuid.Nil
	if e.VoidedBy != nil {
		actor = *e.VoidedBy
	}

	result, err := a.reversal.VoidEntriesForCorrelation(ctx, e.TenantID(), voidedSources, e.OrderID.String(), reason, actor, e.BusinessDate)
	if err != nil {
		return PostingOutcome{}, err
	}
	if len(result.Reversed) == 0 && len(result.Discarded) == 0 && len(result.Failed) == 0 {
		return PostingOutcome{Status: OutcomeSkipped, Detail: "no posted entries for order"}, nil
	}

	if len(result.Failed) > 0 {
		uctx := unmappedContext(e, accounting.SourceReversal, e.OrderID.String())
		rows := make([]*accounting.UnmappedEvent, 0, len(result.Failed))
		for entryID, failure := range result.Failed {
			rows = append(rows, accounting.NewCriticalUnmappedEvent(uctx, accounting.EntityJournal, entryID.String(),
				"reversal failed: "+failure.Error()))
		}
		if err := a.tx.Execute(ctx, func(repos TransactionalRepositories) error {
			return repos.Unmapped().Append(ctx, rows...)
		}); err != nil {
			return PostingOutcome{}, fmt.Errorf("record failed reversals: %w", err)
		}
		for range rows {
			a.recorder.RecordUnmapped(ctx, e.TenantID(), accounting.EntityJournal, accounting.SeverityCritical)
		}
		a.logger.Warn("order void partially applied",
			zap.String("tenant_id", e.TenantID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.Int("reversed", len(result.Reversed)),
			zap.Int("failed", len(result.Failed)),
		)
	}

	if len(result.Discarded) > 0 {
		a.logger.Info("draft entries discarded",
			zap.String("tenant_id", e.TenantID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.Int("discarded", len(result.Discarded)),
		)
	}

	return PostingOutcome{
		Status:   OutcomeReversed,
		Entries:  append(result.Reversed, result.Discarded...),
		Unmapped: len(result.Failed),
	}, nil
}
