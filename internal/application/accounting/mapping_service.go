package accounting

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MappingService maintains GL mappings and serves the unmapped event log
type MappingService struct {
	tx       TransactionScope
	unmapped accounting.UnmappedEventRepository
	logger   *zap.Logger
}

// NewMappingService creates a MappingService
func NewMappingService(tx TransactionScope, unmapped accounting.UnmappedEventRepository, logger *zap.Logger) *MappingService {
	return &MappingService{tx: tx, unmapped: unmapped, logger: logger}
}

// SubDepartmentMappingCommand creates or replaces a sub-department mapping
type SubDepartmentMappingCommand struct {
	TenantID             uuid.UUID
	SubDepartmentID      uuid.UUID
	RevenueAccountID     uuid.UUID
	CostOfGoodsAccountID *uuid.UUID
	InventoryAccountID   *uuid.UUID
	ReturnsAccountID     *uuid.UUID
}

// SaveSubDepartmentMapping upserts a sub-department mapping
func (s *MappingService) SaveSubDepartmentMapping(ctx context.Context, cmd SubDepartmentMappingCommand) (*accounting.SubDepartmentMapping, error) {
	if cmd.SubDepartmentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "sub-department id is required")
	}
	if (cmd.CostOfGoodsAccountID == nil) != (cmd.InventoryAccountID == nil) {
		return nil, shared.NewDomainError("INVALID_INPUT", "cost of goods and inventory accounts must be set together")
	}

	m := accounting.NewSubDepartmentMapping(cmd.TenantID, cmd.SubDepartmentID, cmd.RevenueAccountID)
	m.CostOfGoodsAccountID = cmd.CostOfGoodsAccountID
	m.InventoryAccountID = cmd.InventoryAccountID
	m.ReturnsAccountID = cmd.ReturnsAccountID

	ids := []uuid.UUID{cmd.RevenueAccountID}
	for _, id := range []*uuid.UUID{cmd.CostOfGoodsAccountID, cmd.InventoryAccountID, cmd.ReturnsAccountID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := requirePostable(ctx, repos.Accounts(), cmd.TenantID, ids); err != nil {
			return err
		}
		return repos.Mappings().SaveSubDepartment(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.logSaved("sub_department", cmd.TenantID, cmd.SubDepartmentID.String())
	return m, nil
}

// SavePaymentTypeMapping upserts a payment type mapping
func (s *MappingService) SavePaymentTypeMapping(ctx context.Context, tenantID uuid.UUID, paymentType string, clearingAccountID uuid.UUID) (*accounting.PaymentTypeMapping, error) {
	m := accounting.NewPaymentTypeMapping(tenantID, paymentType, clearingAccountID)
	if m.PaymentType == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "payment type is required")
	}
	if err := s.save(ctx, tenantID, clearingAccountID, func(repos TransactionalRepositories) error {
		return repos.Mappings().SavePaymentType(ctx, m)
	}); err != nil {
		return nil, err
	}
	s.logSaved("payment_type", tenantID, m.PaymentType)
	return m, nil
}

// SaveTaxGroupMapping upserts a tax group mapping
func (s *MappingService) SaveTaxGroupMapping(ctx context.Context, tenantID, taxGroupID, payableAccountID uuid.UUID) (*accounting.TaxGroupMapping, error) {
	if taxGroupID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "tax group id is required")
	}
	m := accounting.NewTaxGroupMapping(tenantID, taxGroupID, payableAccountID)
	if err := s.save(ctx, tenantID, payableAccountID, func(repos TransactionalRepositories) error {
		return repos.Mappings().SaveTaxGroup(ctx, m)
	}); err != nil {
		return nil, err
	}
	s.logSaved("tax_group", tenantID, taxGroupID.String())
	return m, nil
}

// SaveDiscountMapping upserts a discount classification mapping
func (s *MappingService) SaveDiscountMapping(ctx context.Context, tenantID uuid.UUID, classification string, contraAccountID uuid.UUID) (*accounting.DiscountMapping, error) {
	m := accounting.NewDiscountMapping(tenantID, classification, contraAccountID)
	if strings.TrimSpace(m.Classification) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "discount classification is required")
	}
	if err := s.save(ctx, tenantID, contraAccountID, func(repos TransactionalRepositories) error {
		return repos.Mappings().SaveDiscount(ctx, m)
	}); err != nil {
		return nil, err
	}
	s.logSaved("discount_classification", tenantID, m.Classification)
	return m, nil
}

func (s *MappingService) save(ctx context.Context, tenantID, accountID uuid.UUID, write func(TransactionalRepositories) error) error {
	return s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := requirePostable(ctx, repos.Accounts(), tenantID, []uuid.UUID{accountID}); err != nil {
			return err
		}
		return write(repos)
	})
}

func (s *MappingService) logSaved(kind string, tenantID uuid.UUID, key string) {
	s.logger.Info("gl mapping saved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("mapping", kind),
		zap.String("key", key),
	)
}

// ListUnmappedEvents returns a page of the unmapped event log
func (s *MappingService) ListUnmappedEvents(ctx context.Context, tenantID uuid.UUID, filter accounting.UnmappedFilter) (*shared.Paginated[*accounting.UnmappedEvent], error) {
	filter.Clamp()
	events, total, err := s.unmapped.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(events, total, filter.Page, filter.PageSize)
	return &page, nil
}

// CountUnmappedByEntityType summarizes open remediation work
func (s *MappingService) CountUnmappedByEntityType(ctx context.Context, tenantID uuid.UUID) (map[accounting.UnmappedEntityType]int64, error) {
	counts, err := s.unmapped.CountByEntityType(ctx, tenantID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return counts, nil
}
