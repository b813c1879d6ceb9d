// Package membership defines membership billing events consumed by the ledger
package membership

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeBillingCharged = "membership.billing.charged.v1"

	AggregateTypeMembership = "Membership"
)

// BillingChargedEvent is emitted when a membership dues charge is collected.
// AmountMinor includes tax; DeferredMinor is the portion of revenue earned in later periods.
type BillingChargedEvent struct {
	shared.BaseDomainEvent
	ChargeID      uuid.UUID  `json:"charge_id"`
	MembershipID  uuid.UUID  `json:"membership_id"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	PlanCode      string     `json:"plan_code,omitempty"`
	BusinessDate  time.Time  `json:"business_date"`
	PaymentType   string     `json:"payment_type"`
	AmountMinor   int64      `json:"amount"`
	TaxMinor      int64      `json:"tax,omitempty"`
	TaxGroupID    *uuid.UUID `json:"tax_group_id,omitempty"`
	DeferredMinor int64      `json:"deferred,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	LocationID    *uuid.UUID `json:"location_id,omitempty"`
}

// NewBillingChargedEvent creates a BillingChargedEvent
func NewBillingChargedEvent(tenantID, membershipID, chargeID uuid.UUID) *BillingChargedEvent {
	return &BillingChargedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingCharged, AggregateTypeMembership, membershipID, tenantID),
		ChargeID:        chargeID,
		MembershipID:    membershipID,
	}
}

// RecognizedMinor is the revenue earned now
func (e *BillingChargedEvent) RecognizedMinor() int64 {
	return e.AmountMinor - e.TaxMinor - e.DeferredMinor
}

// Validate checks the event at the consumer boundary
func (e *BillingChargedEvent) Validate() error {
	if err := e.BaseDomainEvent.Validate(); err != nil {
		return err
	}
	switch {
	case e.ChargeID == uuid.Nil:
		return shared.NewDomainError("INVALID_EVENT", "charge id is required")
	case e.BusinessDate.IsZero():
		return shared.NewDomainError("INVALID_EVENT", "business date is required")
	case e.AmountMinor <= 0:
		return shared.NewDomainError("INVALID_EVENT", "charge amount must be positive")
	case e.TaxMinor < 0 || e.DeferredMinor < 0:
		return shared.NewDomainError("INVALID_EVENT", "tax and deferred amounts cannot be negative")
	case e.RecognizedMinor() < 0:
		return shared.NewDomainError("INVALID_EVENT", "tax and deferred amounts exceed the charge")
	}
	return nil
}
