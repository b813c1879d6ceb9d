package persistence

import (
	"context"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountChangeLogRepository implements AccountChangeLogRepository using GORM
type GormAccountChangeLogRepository struct {
	db *gorm.DB
}

// NewGormAccountChangeLogRepository creates a new GormAccountChangeLogRepository
func NewGormAccountChangeLogRepository(db *gorm.DB) *GormAccountChangeLogRepository {
	return &GormAccountChangeLogRepository{db: db}
}

// Append inserts history rows
func (r *GormAccountChangeLogRepository) Append(ctx context.Context, logs ...*accounting.AccountChangeLog) error {
	if len(logs) == 0 {
		return nil
	}
	rows := make([]*models.AccountChangeLogModel, len(logs))
	for i, l := range logs {
		rows[i] = models.AccountChangeLogModelFromDomain(l)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListForAccount returns the account's history, oldest first
func (r *GormAccountChangeLogRepository) ListForAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*accounting.AccountChangeLog, error) {
	var rows []models.AccountChangeLogModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*accounting.AccountChangeLog, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GormAuditLogRepository implements AuditLogRepository using GORM
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append inserts audit rows
func (r *GormAuditLogRepository) Append(ctx context.Context, logs ...*accounting.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	rows := make([]*models.AuditLogModel, len(logs))
	for i, l := range logs {
		rows[i] = models.AuditLogModelFromDomain(l)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Ensure the repositories implement their interfaces
var (
	_ accounting.AccountChangeLogRepository = (*GormAccountChangeLogRepository)(nil)
	_ accounting.AuditLogRepository         = (*GormAuditLogRepository)(nil)
)
