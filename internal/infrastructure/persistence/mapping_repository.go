package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMappingRepository implements MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// FindSubDepartment returns the mapping of one sub-department or shared.ErrNotFound
func (r *GormMappingRepository) FindSubDepartment(ctx context.Context, tenantID, subDepartmentID uuid.UUID) (*accounting.SubDepartmentMapping, error) {
	var model models.SubDepartmentMappingModel
	if err := r.first(ctx, &model, "tenant_id = ? AND sub_department_id = ?", tenantID, subDepartmentID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindSubDepartments returns the mappings that exist among subDepartmentIDs
func (r *GormMappingRepository) FindSubDepartments(ctx context.Context, tenantID uuid.UUID, subDepartmentIDs []uuid.UUID) ([]*accounting.SubDepartmentMapping, error) {
	if len(subDepartmentIDs) == 0 {
		return []*accounting.SubDepartmentMapping{}, nil
	}
	var rows []models.SubDepartmentMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sub_department_id IN ?", tenantID, subDepartmentIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*accounting.SubDepartmentMapping, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindPaymentType returns the mapping of a tender type or shared.ErrNotFound
func (r *GormMappingRepository) FindPaymentType(ctx context.Context, tenantID uuid.UUID, paymentType string) (*accounting.PaymentTypeMapping, error) {
	var model models.PaymentTypeMappingModel
	if err := r.first(ctx, &model, "tenant_id = ? AND payment_type = ?", tenantID, accounting.NormalizeCode(paymentType)); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindTaxGroup returns the mapping of a tax group or shared.ErrNotFound
func (r *GormMappingRepository) FindTaxGroup(ctx context.Context, tenantID, taxGroupID uuid.UUID) (*accounting.TaxGroupMapping, error) {
	var model models.TaxGroupMappingModel
	if err := r.first(ctx, &model, "tenant_id = ? AND tax_group_id = ?", tenantID, taxGroupID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindTaxGroups returns the mappings that exist among taxGroupIDs
func (r *GormMappingRepository) FindTaxGroups(ctx context.Context, tenantID uuid.UUID, taxGroupIDs []uuid.UUID) ([]*accounting.TaxGroupMapping, error) {
	if len(taxGroupIDs) == 0 {
		return []*accounting.TaxGroupMapping{}, nil
	}
	var rows []models.TaxGroupMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND tax_group_id IN ?", tenantID, taxGroupIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*accounting.TaxGroupMapping, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindDiscount returns the mapping of a discount classification or shared.ErrNotFound
func (r *GormMappingRepository) FindDiscount(ctx context.Context, tenantID uuid.UUID, classification string) (*accounting.DiscountMapping, error) {
	var model models.DiscountMappingModel
	if err := r.first(ctx, &model, "tenant_id = ? AND classification = ?", tenantID, accounting.NormalizeCode(classification)); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveSubDepartment upserts on (tenant, sub-department)
func (r *GormMappingRepository) SaveSubDepartment(ctx context.Context, m *accounting.SubDepartmentMapping) error {
	return r.upsert(ctx, models.SubDepartmentMappingModelFromDomain(m),
		[]string{"tenant_id", "sub_department_id"},
		"revenue_account_id", "cost_of_goods_account_id", "inventory_account_id", "returns_account_id")
}

// SavePaymentType upserts on (tenant, payment type)
func (r *GormMappingRepository) SavePaymentType(ctx context.Context, m *accounting.PaymentTypeMapping) error {
	return r.upsert(ctx, models.PaymentTypeMappingModelFromDomain(m),
		[]string{"tenant_id", "payment_type"}, "clearing_account_id")
}

// SaveTaxGroup upserts on (tenant, tax group)
func (r *GormMappingRepository) SaveTaxGroup(ctx context.Context, m *accounting.TaxGroupMapping) error {
	return r.upsert(ctx, models.TaxGroupMappingModelFromDomain(m),
		[]string{"tenant_id", "tax_group_id"}, "payable_account_id")
}

// SaveDiscount upserts on (tenant, classification)
func (r *GormMappingRepository) SaveDiscount(ctx context.Context, m *accounting.DiscountMapping) error {
	return r.upsert(ctx, models.DiscountMappingModelFromDomain(m),
		[]string{"tenant_id", "classification"}, "contra_account_id")
}

// RepointAccount moves every mapping column that references from onto to and returns
// the number of rows changed
func (r *GormMappingRepository) RepointAccount(ctx context.Context, tenantID, from, to uuid.UUID) (int64, error) {
	targets := []struct {
		model  any
		column string
	}{
		{&models.SubDepartmentMappingModel{}, "revenue_account_id"},
		{&models.SubDepartmentMappingModel{}, "cost_of_goods_account_id"},
		{&models.SubDepartmentMappingModel{}, "inventory_account_id"},
		{&models.SubDepartmentMappingModel{}, "returns_account_id"},
		{&models.PaymentTypeMappingModel{}, "clearing_account_id"},
		{&models.TaxGroupMappingModel{}, "payable_account_id"},
		{&models.DiscountMappingModel{}, "contra_account_id"},
	}

	var total int64
	now := time.Now()
	for _, t := range targets {
		result := r.db.WithContext(ctx).Model(t.model).
			Where("tenant_id = ? AND "+t.column+" = ?", tenantID, from).
			Updates(map[string]any{t.column: to, "updated_at": now})
		if result.Error != nil {
			return total, fmt.Errorf("repoint %s: %w", t.column, result.Error)
		}
		total += result.RowsAffected
	}
	return total, nil
}

func (r *GormMappingRepository) first(ctx context.Context, dest any, query string, args ...any) error {
	if err := r.db.WithContext(ctx).Where(query, args...).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *GormMappingRepository) upsert(ctx context.Context, model any, key []string, updates ...string) error {
	columns := make([]clause.Column, len(key))
	for i, name := range key {
		columns[i] = clause.Column{Name: name}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   columns,
			DoUpdates: clause.AssignmentColumns(append(updates, "updated_at")),
		}).
		Create(model).Error
}

// Ensure GormMappingRepository implements MappingRepository
var _ accounting.MappingRepository = (*GormMappingRepository)(nil)
