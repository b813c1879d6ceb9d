package event

import (
	"context"
	"fmt"

	appevent "github.com/erp/posting/internal/application/event"
	"github.com/erp/posting/internal/domain/shared"
)

// DeadLetterReplayer decodes a dead letter's payload and redelivers it to the consumer
// that quarantined it
type DeadLetterReplayer struct {
	serializer *EventSerializer
	consumers  map[string]*ConsumerLedgerHandler
}

// NewDeadLetterReplayer creates a replayer over the ledger-guarded consumers
func NewDeadLetterReplayer(serializer *EventSerializer, consumers ...*ConsumerLedgerHandler) *DeadLetterReplayer {
	byName := make(map[string]*ConsumerLedgerHandler, len(consumers))
	for _, c := range consumers {
		byName[c.ConsumerName()] = c
	}
	return &DeadLetterReplayer{serializer: serializer, consumers: byName}
}

// Replay redelivers the stored event
func (r *DeadLetterReplayer) Replay(ctx context.Context, letter *shared.DeadLetter) error {
	consumer, ok := r.consumers[letter.ConsumerName]
	if !ok {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("consumer %s is not registered", letter.ConsumerName))
	}
	if len(letter.Payload) == 0 {
		return shared.NewDomainError("INVALID_STATE", "dead letter has no stored payload")
	}
	event, err := r.serializer.Deserialize(letter.EventType, letter.Payload)
	if err != nil {
		return fmt.Errorf("decode dead letter payload: %w", err)
	}
	return consumer.Redeliver(ctx, event)
}

// Ensure DeadLetterReplayer implements EventReplayer
var _ appevent.EventReplayer = (*DeadLetterReplayer)(nil)
