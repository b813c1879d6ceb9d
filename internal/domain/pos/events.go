// Package pos defines the point-of-sale business events consumed by the ledger.
// Monetary fields are integer minor currency units.
package pos

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types
const (
	EventTypeTenderRecorded = "tender.recorded.v1"
	EventTypeOrderReturned  = "order.returned.v1"
	EventTypeOrderVoided    = "order.voided.v1"

	AggregateTypeOrder = "Order"
)

// Venue distinguishes retail registers from food and beverage outlets
type Venue string

const (
	VenueRetail Venue = "retail"
	VenueFnB    Venue = "fnb"
)

// PackageComponent is one item inside a bundled line with its share of the line revenue
type PackageComponent struct {
	SubDepartmentID *uuid.UUID `json:"sub_department_id,omitempty"`
	RevenueMinor    int64      `json:"revenue"`
}

// OrderLine is a line of the order a tender pays for.
// Net line revenue is RegularPrice - PriceOverride - LineDiscount.
type OrderLine struct {
	LineID                 string             `json:"line_id"`
	SubDepartmentID        *uuid.UUID         `json:"sub_department_id,omitempty"`
	TaxGroupID             *uuid.UUID         `json:"tax_group_id,omitempty"`
	RegularPriceMinor      int64              `json:"regular_price"`
	PriceOverrideMinor     int64              `json:"price_override,omitempty"`
	LineDiscountMinor      int64              `json:"line_discount,omitempty"`
	DiscountClassification string             `json:"discount_classification,omitempty"`
	TaxMinor               int64              `json:"tax"`
	CostMinor              int64              `json:"cost,omitempty"`
	Components             []PackageComponent `json:"components,omitempty"`
}

// NetMinor returns what the customer pays for the line before tax
func (l OrderLine) NetMinor() int64 {
	return l.RegularPriceMinor - l.PriceOverrideMinor - l.LineDiscountMinor
}

// OrderDiscount is an order-level discount
type OrderDiscount struct {
	Classification string `json:"classification"`
	AmountMinor    int64  `json:"amount"`
}

// OrderSnapshot is the order state needed for proportional allocation.
// TotalMinor excludes tips and surcharges, which belong to individual tenders.
type OrderSnapshot struct {
	TotalMinor         int64           `json:"total"`
	Lines              []OrderLine     `json:"lines"`
	Discounts          []OrderDiscount `json:"discounts,omitempty"`
	ServiceChargeMinor int64           `json:"service_charge,omitempty"`
}

// ComputedTotalMinor derives the order total from its parts
func (o OrderSnapshot) ComputedTotalMinor() int64 {
	total := o.ServiceChargeMinor
	for _, l := range o.Lines {
		total += l.NetMinor() + l.TaxMinor
	}
	for _, d := range o.Discounts {
		total -= d.AmountMinor
	}
	return total
}

// TenderRecordedEvent is emitted when a payment is captured against an order
type TenderRecordedEvent struct {
	shared.BaseDomainEvent
	TenderID     uuid.UUID `json:"tender_id"`
	OrderID      uuid.UUID `json:"order_id"`
	BusinessDate time.Time `json:"business_date"`
	PaymentType  string    `json:"payment_type"`
	AmountMinor  int64     `json:"amount"`
	// PriorTenderedMinor is what earlier tenders already paid on the order
	PriorTenderedMinor int64         `json:"prior_tendered,omitempty"`
	TipMinor           int64         `json:"tip,omitempty"`
	SurchargeMinor     int64         `json:"surcharge,omitempty"`
	Currency           string        `json:"currency,omitempty"`
	Venue              Venue         `json:"venue,omitempty"`
	LocationID         *uuid.UUID    `json:"location_id,omitempty"`
	CustomerID         *uuid.UUID    `json:"customer_id,omitempty"`
	TerminalID         string        `json:"terminal_id,omitempty"`
	Channel            string        `json:"channel,omitempty"`
	Order              OrderSnapshot `json:"order"`
}

// NewTenderRecordedEvent creates a TenderRecordedEvent
func NewTenderRecordedEvent(tenantID, orderID, tenderID uuid.UUID) *TenderRecordedEvent {
	return &TenderRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenderRecorded, AggregateTypeOrder, orderID, tenantID),
		TenderID:        tenderID,
		OrderID:         orderID,
	}
}

// Validate checks the event at the consumer boundary
func (e *TenderRecordedEvent) Validate() error {
	if err := e.BaseDomainEvent.Validate(); err != nil {
		return err
	}
	switch {
	case e.TenderID == uuid.Nil:
		return invalid("tender id is required")
	case e.OrderID == uuid.Nil:
		return invalid("order id is required")
	case e.BusinessDate.IsZero():
		return invalid("business date is required")
	case e.AmountMinor <= 0:
		return invalid("tender amount must be positive")
	case e.TipMinor < 0 || e.SurchargeMinor < 0:
		return invalid("tip and surcharge cannot be negative")
	case e.Order.TotalMinor <= 0:
		return invalid("order total must be positive")
	case e.PriorTenderedMinor < 0:
		return invalid("prior tendered amount cannot be negative")
	case e.PriorTenderedMinor+e.AmountMinor > e.Order.TotalMinor:
		return invalid("tender exceeds order total")
	}
	for _, l := range e.Order.Lines {
		if l.RegularPriceMinor < 0 || l.PriceOverrideMinor < 0 || l.LineDiscountMinor < 0 || l.TaxMinor < 0 || l.CostMinor < 0 {
			return invalid("order line " + l.LineID + " has negative amounts")
		}
	}
	return nil
}

// ReturnLine is one returned item
type ReturnLine struct {
	LineID          string     `json:"line_id"`
	SubDepartmentID *uuid.UUID `json:"sub_department_id,omitempty"`
	TaxGroupID      *uuid.UUID `json:"tax_group_id,omitempty"`
	AmountMinor     int64      `json:"amount"`
	TaxMinor        int64      `json:"tax"`
}

// OrderReturnedEvent is emitted when merchandise is refunded
type OrderReturnedEvent struct {
	shared.BaseDomainEvent
	ReturnID         uuid.UUID    `json:"return_id"`
	OrderID          uuid.UUID    `json:"order_id"`
	BusinessDate     time.Time    `json:"business_date"`
	PaymentType      string       `json:"payment_type"`
	RefundTotalMinor int64        `json:"refund_total"`
	Currency         string       `json:"currency,omitempty"`
	LocationID       *uuid.UUID   `json:"location_id,omitempty"`
	Lines            []ReturnLine `json:"lines"`
}

// NewOrderReturnedEvent creates an OrderReturnedEvent
func NewOrderReturnedEvent(tenantID, orderID, returnID uuid.UUID) *OrderReturnedEvent {
	return &OrderReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReturned, AggregateTypeOrder, orderID, tenantID),
		ReturnID:        returnID,
		OrderID:         orderID,
	}
}

// Validate checks the event at the consumer boundary
func (e *OrderReturnedEvent) Validate() error {
	if err := e.BaseDomainEvent.Validate(); err != nil {
		return err
	}
	switch {
	case e.ReturnID == uuid.Nil:
		return invalid("return id is required")
	case e.BusinessDate.IsZero():
		return invalid("business date is required")
	case e.RefundTotalMinor <= 0:
		return invalid("refund total must be positive")
	}
	for _, l := range e.Lines {
		if l.AmountMinor < 0 || l.TaxMinor < 0 {
			return invalid("return line " + l.LineID + " has negative amounts")
		}
	}
	return nil
}

// OrderVoidedEvent is emitted when a completed order is voided
type OrderVoidedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID  `json:"order_id"`
	BusinessDate time.Time  `json:"business_date"`
	Reason       string     `json:"reason"`
	VoidedBy     *uuid.UUID `json:"voided_by,omitempty"`
}

// NewOrderVoidedEvent creates an OrderVoidedEvent
func NewOrderVoidedEvent(tenantID, orderID uuid.UUID) *OrderVoidedEvent {
	return &OrderVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderVoided, AggregateTypeOrder, orderID, tenantID),
		OrderID:         orderID,
	}
}

// Validate checks the event at the consumer boundary
func (e *OrderVoidedEvent) Validate() error {
	if err := e.BaseDomainEvent.Validate(); err != nil {
		return err
	}
	if e.OrderID == uuid.Nil {
		return invalid("order id is required")
	}
	return nil
}

func invalid(msg string) error {
	return shared.NewDomainError("INVALID_EVENT", msg)
}
