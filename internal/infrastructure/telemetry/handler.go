package telemetry

import (
	"context"

	"github.com/erp/posting/internal/domain/shared"
)

// InstrumentedHandler wraps an event consumer in a consumer span and profiling labels.
type InstrumentedHandler struct {
	next shared.NamedEventHandler
}

// Instrument wraps next
func Instrument(next shared.NamedEventHandler) *InstrumentedHandler {
	return &InstrumentedHandler{next: next}
}

// ConsumerName implements shared.NamedEventHandler
func (h *InstrumentedHandler) ConsumerName() string { return h.next.ConsumerName() }

// EventTypes implements shared.EventHandler
func (h *InstrumentedHandler) EventTypes() []string { return h.next.EventTypes() }

// Handle implements shared.EventHandler
func (h *InstrumentedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	ctx, span := StartConsumerSpan(ctx, h.next.ConsumerName(), event.EventType(),
		WithAttribute(SpanAttrEventID, event.EventID().String()),
		WithAttribute(SpanAttrTenantID, event.TenantID().String()),
	)
	defer span.End()

	var err error
	WithProfilingLabels(ctx, ConsumerLabels(h.next.ConsumerName(), event.EventType()), func(ctx context.Context) {
		err = h.next.Handle(ctx, event)
	})
	if err != nil {
		RecordError(span, err)
		return err
	}
	SetOK(span)
	return nil
}

var _ shared.NamedEventHandler = (*InstrumentedHandler)(nil)
