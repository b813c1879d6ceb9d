// Package payment defines payment gateway events consumed by the ledger
package payment

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeACHOriginated = "payment.gateway.ach_originated.v1"
	EventTypeACHSettled    = "payment.gateway.ach_settled.v1"
	EventTypeACHReturned   = "payment.gateway.ach_returned.v1"

	AggregateTypeACHPayment = "ACHPayment"
)

// ACHStage names a step in the ACH lifecycle
type ACHStage string

const (
	ACHStageOriginated ACHStage = "originated"
	ACHStageSettled    ACHStage = "settled"
	ACHStageReturned   ACHStage = "returned"
)

// ACHEvent is implemented by every ACH lifecycle event
type ACHEvent interface {
	shared.DomainEvent
	Payment() *ACHPayment
	Stage() ACHStage
	Validate() error
}

// ACHPayment is the part common to every ACH lifecycle event
type ACHPayment struct {
	PaymentID    uuid.UUID  `json:"payment_id"`
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	InvoiceID    *uuid.UUID `json:"invoice_id,omitempty"`
	AmountMinor  int64      `json:"amount"`
	Currency     string     `json:"currency,omitempty"`
	BusinessDate time.Time  `json:"business_date"`
}

func (p *ACHPayment) validate() error {
	switch {
	case p.PaymentID == uuid.Nil:
		return shared.NewDomainError("INVALID_EVENT", "payment id is required")
	case p.AmountMinor <= 0:
		return shared.NewDomainError("INVALID_EVENT", "ach amount must be positive")
	case p.BusinessDate.IsZero():
		return shared.NewDomainError("INVALID_EVENT", "business date is required")
	}
	return nil
}

// ReferenceFor builds the idempotency reference of a lifecycle stage
func ReferenceFor(paymentID uuid.UUID, stage ACHStage) string {
	return paymentID.String() + ":" + string(stage)
}

// ACHOriginatedEvent is emitted when a debit is submitted to the ACH network
type ACHOriginatedEvent struct {
	shared.BaseDomainEvent
	ACHPayment
}

// NewACHOriginatedEvent creates an ACHOriginatedEvent
func NewACHOriginatedEvent(tenantID, paymentID uuid.UUID, amountMinor int64, businessDate time.Time) *ACHOriginatedEvent {
	return &ACHOriginatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeACHOriginated, AggregateTypeACHPayment, paymentID, tenantID),
		ACHPayment:      ACHPayment{PaymentID: paymentID, AmountMinor: amountMinor, BusinessDate: businessDate},
	}
}

func (e *ACHOriginatedEvent) Payment() *ACHPayment { return &e.ACHPayment }
func (e *ACHOriginatedEvent) Stage() ACHStage      { return ACHStageOriginated }

// Validate checks the event at the consumer boundary
func (e *ACHOriginatedEvent) Validate() error {
	if err := e.BaseDomainEvent.Validate(); err != nil {
		return err
	}
	return e.ACHPayment.validate()
}

// ACHSettledEvent is emitted when funds land in the operating bank account
type ACHSettledEvent struct {
	shared.BaseDomainEvent
	ACHPayment
	SettlementID string `json:"settlement_id,omitempty"`
}

// NewACHSettledEvent creates an ACHSettledEvent
func NewACHSettledEvent(tenantID, paymentID uuid.UUID, amountMinor int64, businessDate time.Time) *ACHSettledEvent {
	return &ACHSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeACHSettled, AggregateTypeACHPayment, paymentID, tenantID),
		ACHPayment:      ACHPayment{PaymentID: paymentID, AmountMinor: amountMinor, BusinessDate: businessDate},
	}
}

func (e *ACHSettledEvent) Payment() *ACHPayment { return &e.ACHPayment }
func (e *ACHSettledEvent) Stage() ACHStage      { return ACHStageSettled }

// Validate checks the event at the consumer boundary
func (e *ACHSettledEvent) Validate() error {
	if err := e.BaseDomainEvent.Validate(); err != nil {
		return err
	}
	return e.ACHPayment.validate()
}

// ACHReturnedEvent is emitted when the receiving bank returns a debit
type ACHReturnedEvent struct {
	shared.BaseDomainEvent
	ACHPayment
	ReturnCode string `json:"return_code"`
	Reason     string `json:"reason,omitempty"`
}

// NewACHReturnedEvent creates an ACHReturnedEvent
func NewACHReturnedEvent(tenantID, paymentID uuid.UUID, amountMinor int64, businessDate time.Time, returnCode string) *ACHReturnedEvent {
	return &ACHReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeACHReturned, AggregateTypeACHPayment, paymentID, tenantID),
		ACHPayment:      ACHPayment{PaymentID: paymentID, AmountMinor: amountMinor, BusinessDate: businessDate},
		ReturnCode:      returnCode,
	}
}

func (e *ACHReturnedEvent) Payment() *ACHPayment { return &e.ACHPayment }
func (e *ACHReturnedEvent) Stage() ACHStage      { return ACHStageReturned }

// Validate checks the event at the consumer boundary
func (e *ACHReturnedEvent) Validate() error {
	if err := e.BaseDomainEvent.Validate(); err != nil {
		return err
	}
	return e.ACHPayment.validate()
}
