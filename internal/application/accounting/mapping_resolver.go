package accounting

import (
	"context"
	"errors"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// MappingResolver looks up GL mappings. Lookups return nil when no mapping exists;
// applying fallbacks and logging the gap is the caller's job. The only write it
// performs is RecordUnmapped.
type MappingResolver struct {
	mappings accounting.MappingRepository
	unmapped accounting.UnmappedEventRepository
}

// NewMappingResolver creates a resolver over the given repositories. Inside a
// transaction pass the transaction-bound repositories.
func NewMappingResolver(mappings accounting.MappingRepository, unmapped accounting.UnmappedEventRepository) *MappingResolver {
	return &MappingResolver{mappings: mappings, unmapped: unmapped}
}

// SubDepartmentAccounts returns the full mapping of a sub-department, or nil
func (r *MappingResolver) SubDepartmentAccounts(ctx context.Context, tenantID, subDepartmentID uuid.UUID) (*accounting.SubDepartmentMapping, error) {
	m, err := r.mappings.FindSubDepartment(ctx, tenantID, subDepartmentID)
	if err != nil {
		return nil, orNil(err)
	}
	return m, nil
}

// SubDepartmentRevenueAccount returns the revenue account of a sub-department, or nil
func (r *MappingResolver) SubDepartmentRevenueAccount(ctx context.Context, tenantID, subDepartmentID uuid.UUID) (*uuid.UUID, error) {
	m, err := r.SubDepartmentAccounts(ctx, tenantID, subDepartmentID)
	if err != nil || m == nil {
		return nil, err
	}
	id := m.RevenueAccountID
	return &id, nil
}

// PaymentTypeClearingAccount returns the clearing account of a payment type, or nil
func (r *MappingResolver) PaymentTypeClearingAccount(ctx context.Context, tenantID uuid.UUID, paymentType string) (*uuid.UUID, error) {
	code := accounting.NormalizeCode(paymentType)
	if code == "" {
		return nil, nil
	}
	m, err := r.mappings.FindPaymentType(ctx, tenantID, code)
	if err != nil {
		return nil, orNil(err)
	}
	id := m.ClearingAccountID
	return &id, nil
}

// TaxGroupPayableAccount returns the payable account of a tax group, or nil
func (r *MappingResolver) TaxGroupPayableAccount(ctx context.Context, tenantID, taxGroupID uuid.UUID) (*uuid.UUID, error) {
	m, err := r.mappings.FindTaxGroup(ctx, tenantID, taxGroupID)
	if err != nil {
		return nil, orNil(err)
	}
	id := m.PayableAccountID
	return &id, nil
}

// DiscountContraAccount returns the contra-revenue account of a discount classification, or nil
func (r *MappingResolver) DiscountContraAccount(ctx context.Context, tenantID uuid.UUID, classification string) (*uuid.UUID, error) {
	code := accounting.NormalizeCode(classification)
	if code == "" {
		return nil, nil
	}
	m, err := r.mappings.FindDiscount(ctx, tenantID, code)
	if err != nil {
		return nil, orNil(err)
	}
	id := m.ContraAccountID
	return &id, nil
}

// SubDepartmentAccountsFor resolves many sub-departments in one query. Unmapped ids are
// absent from the result, matching what SubDepartmentAccounts returns for them.
func (r *MappingResolver) SubDepartmentAccountsFor(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*accounting.SubDepartmentMapping, error) {
	out := make(map[uuid.UUID]*accounting.SubDepartmentMapping, len(ids))
	ids = distinct(ids)
	if len(ids) == 0 {
		return out, nil
	}
	found, err := r.mappings.FindSubDepartments(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range found {
		out[m.SubDepartmentID] = m
	}
	return out, nil
}

// TaxGroupAccountsFor resolves many tax groups in one query
func (r *MappingResolver) TaxGroupAccountsFor(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	out := make(map[uuid.UUID]uuid.UUID, len(ids))
	ids = distinct(ids)
	if len(ids) == 0 {
		return out, nil
	}
	found, err := r.mappings.FindTaxGroups(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range found {
		out[m.TaxGroupID] = m.PayableAccountID
	}
	return out, nil
}

// RecordUnmapped appends rows to the unmapped event log
func (r *MappingResolver) RecordUnmapped(ctx context.Context, events ...*accounting.UnmappedEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.unmapped.Append(ctx, events...)
}

func orNil(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

func distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
