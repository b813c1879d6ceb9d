package persistence

import (
	"context"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUnmappedEventRepository implements UnmappedEventRepository using GORM
type GormUnmappedEventRepository struct {
	db *gorm.DB
}

// NewGormUnmappedEventRepository creates a new GormUnmappedEventRepository
func NewGormUnmappedEventRepository(db *gorm.DB) *GormUnmappedEventRepository {
	return &GormUnmappedEventRepository{db: db}
}

// Append inserts remediation rows
func (r *GormUnmappedEventRepository) Append(ctx context.Context, events ...*accounting.UnmappedEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]*models.UnmappedEventModel, len(events))
	for i, e := range events {
		rows[i] = models.UnmappedEventModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// List returns a page of the tenant's remediation rows, newest first by default
func (r *GormUnmappedEventRepository) List(ctx context.Context, tenantID uuid.UUID, filter accounting.UnmappedFilter) ([]*accounting.UnmappedEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UnmappedEventModel{}).Where("tenant_id = ?", tenantID)
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.SourceModule != "" {
		query = query.Where("source_module = ?", filter.SourceModule)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ReferenceID != "" {
		query = query.Where("source_reference_id = ?", filter.ReferenceID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(UnmappedEventSort.Clause(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.UnmappedEventModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*accounting.UnmappedEvent, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// CountByEntityType counts the tenant's rows per entity type
func (r *GormUnmappedEventRepository) CountByEntityType(ctx context.Context, tenantID uuid.UUID) (map[accounting.UnmappedEntityType]int64, error) {
	var rows []struct {
		EntityType accounting.UnmappedEntityType
		Count      int64
	}
	if err := r.db.WithContext(ctx).Model(&models.UnmappedEventModel{}).
		Select("entity_type, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Group("entity_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[accounting.UnmappedEntityType]int64, len(rows))
	for _, row := range rows {
		counts[row.EntityType] = row.Count
	}
	return counts, nil
}

// Ensure GormUnmappedEventRepository implements UnmappedEventRepository
var _ accounting.UnmappedEventRepository = (*GormUnmappedEventRepository)(nil)
