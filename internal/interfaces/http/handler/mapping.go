package handler

import (
	"context"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MappingService is the account mapping API the mapping handler drives
type MappingService interface {
	SaveSubDepartmentMapping(ctx context.Context, cmd appaccounting.SubDepartmentMappingCommand) (*accounting.SubDepartmentMapping, error)
	SavePaymentTypeMapping(ctx context.Context, tenantID uuid.UUID, paymentType string, clearingAccountID uuid.UUID) (*accounting.PaymentTypeMapping, error)
	SaveTaxGroupMapping(ctx context.Context, tenantID, taxGroupID, payableAccountID uuid.UUID) (*accounting.TaxGroupMapping, error)
	SaveDiscountMapping(ctx context.Context, tenantID uuid.UUID, classification string, contraAccountID uuid.UUID) (*accounting.DiscountMapping, error)
	ListUnmappedEvents(ctx context.Context, tenantID uuid.UUID, filter accounting.UnmappedFilter) (*shared.Paginated[*accounting.UnmappedEvent], error)
	CountUnmappedByEntityType(ctx context.Context, tenantID uuid.UUID) (map[accounting.UnmappedEntityType]int64, error)
}

// SubDepartmentMappingRequest routes a sub-department's revenue, cost and returns
type SubDepartmentMappingRequest struct {
	RevenueAccountID     string  `json:"revenue_account_id" binding:"required,uuid"`
	CostOfGoodsAccountID *string `json:"cogs_account_id,omitempty" binding:"omitempty,uuid"`
	InventoryAccountID   *string `json:"inventory_account_id,omitempty" binding:"omitempty,uuid"`
	ReturnsAccountID     *string `json:"returns_account_id,omitempty" binding:"omitempty,uuid"`
}

// AccountMappingRequest routes a payment type, tax group or discount classification to one account
type AccountMappingRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
}

// UnmappedListQuery is the query string of the unmapped-event listing
type UnmappedListQuery struct {
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	EntityType   string `form:"entity_type"`
	SourceModule string `form:"source_module"`
	Severity     string `form:"severity" binding:"omitempty,oneof=warning critical"`
	ReferenceID  string `form:"reference_id"`
}

// MappingResponse is a saved mapping
type MappingResponse struct {
	Key                  string  `json:"key"`
	AccountID            string  `json:"account_id"`
	CostOfGoodsAccountID *string `json:"cogs_account_id,omitempty"`
	InventoryAccountID   *string `json:"inventory_account_id,omitempty"`
	ReturnsAccountID     *string `json:"returns_account_id,omitempty"`
}

// UnmappedEventResponse is one remediation row
// @Description Unmapped event log row
type UnmappedEventResponse struct {
	ID                string  `json:"id"`
	EventID           *string `json:"event_id,omitempty"`
	EventType         string  `json:"event_type"`
	SourceModule      string  `json:"source_module"`
	SourceReferenceID string  `json:"source_reference_id"`
	EntityType        string  `json:"entity_type" example:"sub_department"`
	EntityID          string  `json:"entity_id"`
	FallbackAccountID *string `json:"fallback_account_id,omitempty"`
	Reason            string  `json:"reason"`
	Severity          string  `json:"severity" example:"warning"`
	CreatedAt         string  `json:"created_at"`
}

func toUnmappedEventResponses(events []*accounting.UnmappedEvent) []UnmappedEventResponse {
	out := make([]UnmappedEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, UnmappedEventResponse{
			ID:                e.ID.String(),
			EventID:           uuidString(e.EventID),
			EventType:         e.EventType,
			SourceModule:      string(e.SourceModule),
			SourceReferenceID: e.SourceReferenceID,
			EntityType:        string(e.EntityType),
			EntityID:          e.EntityID,
			FallbackAccountID: uuidString(e.FallbackAccountID),
			Reason:            e.Reason,
			Severity:          string(e.Severity),
			CreatedAt:         e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// MappingHandler handles account mapping and remediation HTTP requests
type MappingHandler struct {
	BaseHandler
	mappings MappingService
}

// NewMappingHandler creates a new MappingHandler
func NewMappingHandler(mappings MappingService) *MappingHandler {
	return &MappingHandler{mappings: mappings}
}

// bindAccount reads the tenant and the single-account body shared by the flat mappings
func (h *MappingHandler) bindAccount(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return uuid.Nil, uuid.Nil, false
	}
	var req AccountMappingRequest
	if !h.BindJSON(c, &req) {
		return uuid.Nil, uuid.Nil, false
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.BadRequest(c, "Invalid account_id")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, accountID, true
}

// SaveSubDepartment godoc
// @ID           saveSubDepartmentMapping
// @Summary      Map a sub-department
// @Description  Set the revenue, cost of goods, inventory and returns accounts of a sub-department. COGS and inventory go together.
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        id path string true "Sub-department ID" format(uuid)
// @Param        request body SubDepartmentMappingRequest true "Accounts"
// @Success      200 {object} APIResponse[MappingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /mappings/sub-departments/{id} [put]
func (h *MappingHandler) SaveSubDepartment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}
	subDeptID, ok := h.pathUUID(c, "id", "sub-department ID")
	if !ok {
		return
	}

	var req SubDepartmentMappingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	revenueID, err := uuid.Parse(req.RevenueAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid revenue_account_id")
		return
	}
	cogsID, err := parseOptionalUUID(req.CostOfGoodsAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid cogs_account_id")
		return
	}
	inventoryID, err := parseOptionalUUID(req.InventoryAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid inventory_account_id")
		return
	}
	returnsID, err := parseOptionalUUID(req.ReturnsAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid returns_account_id")
		return
	}

	m, err := h.mappings.SaveSubDepartmentMapping(c.Request.Context(), appaccounting.SubDepartmentMappingCommand{
		TenantID:             tenantID,
		SubDepartmentID:      subDeptID,
		RevenueAccountID:     revenueID,
		CostOfGoodsAccountID: cogsID,
		InventoryAccountID:   inventoryID,
		ReturnsAccountID:     returnsID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MappingResponse{
		Key:                  m.SubDepartmentID.String(),
		AccountID:            m.RevenueAccountID.String(),
		CostOfGoodsAccountID: uuidString(m.CostOfGoodsAccountID),
		InventoryAccountID:   uuidString(m.InventoryAccountID),
		ReturnsAccountID:     uuidString(m.ReturnsAccountID),
	})
}

// SavePaymentType godoc
// @ID           savePaymentTypeMapping
// @Summary      Map a payment type
// @Description  Set the clearing account tenders of this payment type debit
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        code path string true "Payment type code"
// @Param        request body AccountMappingRequest true "Clearing account"
// @Success      200 {object} APIResponse[MappingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /mappings/payment-types/{code} [put]
func (h *MappingHandler) SavePaymentType(c *gin.Context) {
	tenantID, accountID, ok := h.bindAccount(c)
	if !ok {
		return
	}

	m, err := h.mappings.SavePaymentTypeMapping(c.Request.Context(), tenantID, c.Param("code"), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MappingResponse{Key: m.PaymentType, AccountID: m.ClearingAccountID.String()})
}

// SaveTaxGroup godoc
// @ID           saveTaxGroupMapping
// @Summary      Map a tax group
// @Description  Set the payable account tax collected under this group credits
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        id path string true "Tax group ID" format(uuid)
// @Param        request body AccountMappingRequest true "Payable account"
// @Success      200 {object} APIResponse[MappingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /mappings/tax-groups/{id} [put]
func (h *MappingHandler) SaveTaxGroup(c *gin.Context) {
	taxGroupID, ok := h.pathUUID(c, "id", "tax group ID")
	if !ok {
		return
	}
	tenantID, accountID, ok := h.bindAccount(c)
	if !ok {
		return
	}

	m, err := h.mappings.SaveTaxGroupMapping(c.Request.Context(), tenantID, taxGroupID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MappingResponse{Key: m.TaxGroupID.String(), AccountID: m.PayableAccountID.String()})
}

// SaveDiscount godoc
// @ID           saveDiscountMapping
// @Summary      Map a discount classification
// @Description  Set the contra-revenue account discounts of this classification debit
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        classification path string true "Discount classification"
// @Param        request body AccountMappingRequest true "Contra account"
// @Success      200 {object} APIResponse[MappingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /mappings/discounts/{classification} [put]
func (h *MappingHandler) SaveDiscount(c *gin.Context) {
	tenantID, accountID, ok := h.bindAccount(c)
	if !ok {
		return
	}

	m, err := h.mappings.SaveDiscountMapping(c.Request.Context(), tenantID, c.Param("classification"), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MappingResponse{Key: m.Classification, AccountID: m.ContraAccountID.String()})
}

// ListUnmapped godoc
// @ID           listUnmappedEvents
// @Summary      List unmapped events
// @Description  Remediation log of postings that used a fallback account or could not post
// @Tags         mappings
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        entity_type query string false "Entity type"
// @Param        source_module query string false "Source module"
// @Param        severity query string false "Severity" Enums(warning, critical)
// @Param        reference_id query string false "Source reference ID"
// @Success      200 {object} APIResponse[[]UnmappedEventResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /unmapped-events [get]
func (h *MappingHandler) ListUnmapped(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var q UnmappedListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page := dto.ListRequest{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()

	result, err := h.mappings.ListUnmappedEvents(c.Request.Context(), tenantID, accounting.UnmappedFilter{
		Filter:       shared.Filter{Page: page.Page, PageSize: page.PageSize},
		EntityType:   accounting.UnmappedEntityType(q.EntityType),
		SourceModule: accounting.SourceModule(q.SourceModule),
		Severity:     accounting.UnmappedSeverity(q.Severity),
		ReferenceID:  q.ReferenceID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toUnmappedEventResponses(result.Items), result.Total, result.Page, result.PageSize)
}

// CountUnmapped godoc
// @ID           countUnmappedEvents
// @Summary      Count unmapped events by entity type
// @Tags         mappings
// @Produce      json
// @Success      200 {object} APIResponse[map[string]int64]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /unmapped-events/counts [get]
func (h *MappingHandler) CountUnmapped(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	counts, err := h.mappings.CountUnmappedByEntityType(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make(map[string]int64, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	h.Success(c, out)
}
