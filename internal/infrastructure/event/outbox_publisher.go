package event

import (
	"context"
	"fmt"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox within a transaction
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{
		serializer: serializer,
	}
}

// PublishWithTx writes events to the outbox within the provided transaction, so they
// commit or roll back together with the ledger change that produced them
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", event.EventType(), err)
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// Bind returns an outbox writer scoped to tx
func (p *OutboxPublisher) Bind(tx *gorm.DB) appaccounting.EventWriter {
	return &txWriter{publisher: p, tx: tx}
}

type txWriter struct {
	publisher *OutboxPublisher
	tx        *gorm.DB
}

func (w *txWriter) Append(ctx context.Context, events ...shared.DomainEvent) error {
	return w.publisher.PublishWithTx(ctx, w.tx, events...)
}
