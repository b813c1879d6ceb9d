package event

import (
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/membership"
	"github.com/erp/posting/internal/domain/payment"
	"github.com/erp/posting/internal/domain/pos"
)

// RegisterAllEvents registers every event type the posting engine reads or writes.
// Inbound types are needed to decode consumer deliveries, dead letter payloads and
// replay files. Outbound types are needed to decode outbox rows before dispatch.
func RegisterAllEvents(serializer *EventSerializer) {
	// Point of sale
	serializer.Register(pos.EventTypeTenderRecorded, &pos.TenderRecordedEvent{})
	serializer.Register(pos.EventTypeOrderReturned, &pos.OrderReturnedEvent{})
	serializer.Register(pos.EventTypeOrderVoided, &pos.OrderVoidedEvent{})

	// Membership billing
	serializer.Register(membership.EventTypeBillingCharged, &membership.BillingChargedEvent{})

	// Payment gateway ACH lifecycle
	serializer.Register(payment.EventTypeACHOriginated, &payment.ACHOriginatedEvent{})
	serializer.Register(payment.EventTypeACHSettled, &payment.ACHSettledEvent{})
	serializer.Register(payment.EventTypeACHReturned, &payment.ACHReturnedEvent{})

	// Ledger events published through the outbox
	serializer.Register(accounting.EventTypeAccountCreated, &accounting.AccountCreatedEvent{})
	serializer.Register(accounting.EventTypeAccountMerged, &accounting.AccountMergedEvent{})
	serializer.Register(accounting.EventTypeJournalPosted, &accounting.JournalPostedEvent{})
	serializer.Register(accounting.EventTypeJournalVoided, &accounting.JournalVoidedEvent{})
}

// InboundEventTypes lists the business events the posting adapters consume
func InboundEventTypes() []string {
	return []string{
		pos.EventTypeTenderRecorded,
		pos.EventTypeOrderReturned,
		pos.EventTypeOrderVoided,
		membership.EventTypeBillingCharged,
		payment.EventTypeACHOriginated,
		payment.EventTypeACHSettled,
		payment.EventTypeACHReturned,
	}
}
