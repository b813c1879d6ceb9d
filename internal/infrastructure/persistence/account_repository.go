package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account of the tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*accounting.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the accounts of the tenant among ids. Unknown ids are omitted.
func (r *GormAccountRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*accounting.Account, error) {
	if len(ids) == 0 {
		return []*accounting.Account{}, nil
	}
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return accountsToDomain(rows), nil
}

// FindByNumber finds an account by its number within a tenant
func (r *GormAccountRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*accounting.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_number = ?", tenantID, strings.TrimSpace(number)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns the tenant's chart ordered by path
func (r *GormAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*accounting.Account, error) {
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("path ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return accountsToDomain(rows), nil
}

// ExistsByNumber checks if an account number is taken within a tenant
func (r *GormAccountRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("tenant_id = ? AND account_number = ?", tenantID, strings.TrimSpace(number)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *accounting.Account) error {
	if err := r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account)).Error; err != nil {
		return translateAccountError(err)
	}
	return nil
}

// SaveBatch creates or updates several accounts in order
func (r *GormAccountRepository) SaveBatch(ctx context.Context, accounts []*accounting.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	for _, account := range accounts {
		if err := db.Save(models.AccountModelFromDomain(account)).Error; err != nil {
			return translateAccountError(err)
		}
	}
	return nil
}

func accountsToDomain(rows []models.AccountModel) []*accounting.Account {
	out := make([]*accounting.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

func translateAccountError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return accounting.ErrAccountNumberExists
	}
	return err
}

// Ensure GormAccountRepository implements AccountRepository
var _ accounting.AccountRepository = (*GormAccountRepository)(nil)
