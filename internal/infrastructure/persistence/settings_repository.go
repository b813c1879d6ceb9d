package persistence

import (
	"context"
	"errors"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsRepository implements SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// FindByTenant returns the tenant's settings or shared.ErrNotFound
func (r *GormSettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, error) {
	var model models.AccountingSettingsModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the settings row of the tenant
func (r *GormSettingsRepository) Save(ctx context.Context, settings *accounting.AccountingSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"base_currency", "supported_currencies", "auto_post_mode", "lock_period_through",
				"rounding_tolerance_minor", "rounding_account_id", "max_event_retries",
				"defaults", "version", "updated_at",
			}),
		}).
		Create(models.AccountingSettingsModelFromDomain(settings)).Error
}

// Ensure GormSettingsRepository implements SettingsRepository
var _ accounting.SettingsRepository = (*GormSettingsRepository)(nil)
