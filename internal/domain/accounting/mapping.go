package accounting

import (
	"strings"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// SubDepartmentMapping routes a sub-department's sales to GL accounts.
// COGS is posted only when both CostOfGoodsAccountID and InventoryAccountID are set.
type SubDepartmentMapping struct {
	shared.BaseEntity
	TenantID             uuid.UUID
	SubDepartmentID      uuid.UUID
	RevenueAccountID     uuid.UUID
	CostOfGoodsAccountID *uuid.UUID
	InventoryAccountID   *uuid.UUID
	ReturnsAccountID     *uuid.UUID
}

// PostsCOGS reports whether cost of goods can be posted for the mapping
func (m *SubDepartmentMapping) PostsCOGS() bool {
	return m != nil && m.CostOfGoodsAccountID != nil && m.InventoryAccountID != nil
}

// PaymentTypeMapping routes a tender type (card, cash, gift_card...) to its clearing account
type PaymentTypeMapping struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	PaymentType       string
	ClearingAccountID uuid.UUID
}

// TaxGroupMapping routes a tax group to its payable account
type TaxGroupMapping struct {
	shared.BaseEntity
	TenantID         uuid.UUID
	TaxGroupID       uuid.UUID
	PayableAccountID uuid.UUID
}

// DiscountMapping routes a discount classification to its contra-revenue account
type DiscountMapping struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	Classification  string
	ContraAccountID uuid.UUID
}

// NormalizeCode lower-cases and trims a payment type or discount classification key
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// NewSubDepartmentMapping creates a sub-department mapping
func NewSubDepartmentMapping(tenantID, subDepartmentID, revenueAccountID uuid.UUID) *SubDepartmentMapping {
	return &SubDepartmentMapping{
		BaseEntity:       shared.NewBaseEntity(),
		TenantID:         tenantID,
		SubDepartmentID:  subDepartmentID,
		RevenueAccountID: revenueAccountID,
	}
}

// NewPaymentTypeMapping creates a payment type mapping
func NewPaymentTypeMapping(tenantID uuid.UUID, paymentType string, clearingAccountID uuid.UUID) *PaymentTypeMapping {
	return &PaymentTypeMapping{
		BaseEntity:        shared.NewBaseEntity(),
		TenantID:          tenantID,
		PaymentType:       NormalizeCode(paymentType),
		ClearingAccountID: clearingAccountID,
	}
}

// NewTaxGroupMapping creates a tax group mapping
func NewTaxGroupMapping(tenantID, taxGroupID, payableAccountID uuid.UUID) *TaxGroupMapping {
	return &TaxGroupMapping{
		BaseEntity:       shared.NewBaseEntity(),
		TenantID:         tenantID,
		TaxGroupID:       taxGroupID,
		PayableAccountID: payableAccountID,
	}
}

// NewDiscountMapping creates a discount mapping
func NewDiscountMapping(tenantID uuid.UUID, classification string, contraAccountID uuid.UUID) *DiscountMapping {
	return &DiscountMapping{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		Classification:  NormalizeCode(classification),
		ContraAccountID: contraAccountID,
	}
}
