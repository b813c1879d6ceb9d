package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ingest error codes
const (
	CodeUnknownEventType = "UNKNOWN_EVENT_TYPE"
	CodeInvalidEvent     = "INVALID_EVENT"
	CodeTenantMismatch   = "TENANT_MISMATCH"
)

// AcceptResult reports what the inbox did with a delivery
type AcceptResult struct {
	Event     shared.DomainEvent
	Duplicate bool
}

// Inbox accepts inbound business events from producers and queues them in the outbox
// table. The outbox processor then delivers them to the posting consumers, so one table
// backs both inbound delivery and the ledger's own outbound events.
type Inbox struct {
	db         *gorm.DB
	publisher  *OutboxPublisher
	serializer *EventSerializer
	inbound    map[string]bool
	logger     *zap.Logger
}

// NewInbox creates an inbox accepting InboundEventTypes
func NewInbox(db *gorm.DB, publisher *OutboxPublisher, serializer *EventSerializer, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	inbound := make(map[string]bool)
	for _, t := range InboundEventTypes() {
		inbound[t] = true
	}
	return &Inbox{
		db:         db,
		publisher:  publisher,
		serializer: serializer,
		inbound:    inbound,
		logger:     logger,
	}
}

// Accept decodes payload and queues it for the posting consumers. tenantID is the
// caller's authenticated tenant; an event for any other tenant is refused. Payload
// validation beyond the envelope happens in the consumers, where failures are recorded
// for remediation instead of bouncing back to the producer.
func (i *Inbox) Accept(ctx context.Context, tenantID uuid.UUID, payload []byte) (*AcceptResult, error) {
	evt, err := i.serializer.DeserializeEnvelope(payload)
	if err != nil {
		return nil, shared.NewDomainError(CodeInvalidEvent, err.Error())
	}
	if !i.inbound[evt.EventType()] {
		return nil, shared.NewDomainError(CodeUnknownEventType,
			fmt.Sprintf("event type %s is not consumed by the ledger", evt.EventType()))
	}
	if evt.EventID() == uuid.Nil {
		return nil, shared.NewDomainError(CodeInvalidEvent, "event id is required")
	}
	if evt.TenantID() != tenantID {
		return nil, shared.NewDomainError(CodeTenantMismatch, "event tenant does not match the authenticated tenant")
	}

	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return i.publisher.PublishWithTx(ctx, tx, evt)
	})
	if errors.Is(err, shared.ErrAlreadyExists) {
		i.logger.Debug("Duplicate inbound event ignored",
			zap.String("event_id", evt.EventID().String()),
			zap.String("event_type", evt.EventType()),
		)
		return &AcceptResult{Event: evt, Duplicate: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue inbound event: %w", err)
	}

	i.logger.Info("Inbound event queued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("event_type", evt.EventType()),
	)
	return &AcceptResult{Event: evt}, nil
}
