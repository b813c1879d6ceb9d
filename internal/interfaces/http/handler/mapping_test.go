package handler

import (
	"net/http"
	"testing"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupMappingTestRouter() (*gin.Engine, *MockMappingService) {
	mappings := new(MockMappingService)
	h := NewMappingHandler(mappings)

	router := gin.New()
	router.Use(withIdentity())
	router.PUT("/mappings/sub-departments/:id", h.SaveSubDepartment)
	router.PUT("/mappings/payment-types/:code", h.SavePaymentType)
	router.PUT("/mappings/tax-groups/:id", h.SaveTaxGroup)
	router.PUT("/mappings/discounts/:classification", h.SaveDiscount)
	router.GET("/unmapped-events", h.ListUnmapped)
	router.GET("/unmapped-events/counts", h.CountUnmapped)
	return router, mappings
}

func TestMappingHandler_SaveSubDepartment(t *testing.T) {
	t.Run("should save revenue and cost accounts", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()
		subDept, revenue, cogs, inventory := uuid.New(), uuid.New(), uuid.New(), uuid.New()

		mappings.On("SaveSubDepartmentMapping", mock.Anything, mock.MatchedBy(func(cmd appaccounting.SubDepartmentMappingCommand) bool {
			return cmd.TenantID == testTenantID &&
				cmd.SubDepartmentID == subDept &&
				cmd.RevenueAccountID == revenue &&
				cmd.CostOfGoodsAccountID != nil && *cmd.CostOfGoodsAccountID == cogs &&
				cmd.InventoryAccountID != nil && *cmd.InventoryAccountID == inventory &&
				cmd.ReturnsAccountID == nil
		})).Return(&accounting.SubDepartmentMapping{
			TenantID:             testTenantID,
			SubDepartmentID:      subDept,
			RevenueAccountID:     revenue,
			CostOfGoodsAccountID: &cogs,
			InventoryAccountID:   &inventory,
		}, nil)

		cogsID, inventoryID := cogs.String(), inventory.String()
		w := performRequest(router, http.MethodPut, "/mappings/sub-departments/"+subDept.String(), SubDepartmentMappingRequest{
			RevenueAccountID:     revenue.String(),
			CostOfGoodsAccountID: &cogsID,
			InventoryAccountID:   &inventoryID,
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp MappingResponse
		decodeData(t, w, &resp)
		assert.Equal(t, subDept.String(), resp.Key)
		assert.Equal(t, revenue.String(), resp.AccountID)
		assert.Nil(t, resp.ReturnsAccountID)
		mappings.AssertExpectations(t)
	})

	t.Run("should require a revenue account", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()

		w := performRequest(router, http.MethodPut, "/mappings/sub-departments/"+uuid.New().String(), map[string]string{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mappings.AssertNotCalled(t, "SaveSubDepartmentMapping", mock.Anything, mock.Anything)
	})

	t.Run("should refuse an inactive account", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()
		mappings.On("SaveSubDepartmentMapping", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError(accounting.CodeInactiveAccount, "Account 4000 is inactive"))

		w := performRequest(router, http.MethodPut, "/mappings/sub-departments/"+uuid.New().String(),
			SubDepartmentMappingRequest{RevenueAccountID: uuid.New().String()})

		assert.Equal(t, accounting.CodeInactiveAccount, decodeResponse(t, w).Error.Code)
	})
}

func TestMappingHandler_FlatMappings(t *testing.T) {
	t.Run("payment type", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()
		clearing := uuid.New()
		mappings.On("SavePaymentTypeMapping", mock.Anything, testTenantID, "visa", clearing).
			Return(&accounting.PaymentTypeMapping{PaymentType: "visa", ClearingAccountID: clearing}, nil)

		w := performRequest(router, http.MethodPut, "/mappings/payment-types/visa", AccountMappingRequest{AccountID: clearing.String()})

		require.Equal(t, http.StatusOK, w.Code)
		var resp MappingResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "visa", resp.Key)
		assert.Equal(t, clearing.String(), resp.AccountID)
	})

	t.Run("tax group", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()
		taxGroup, payable := uuid.New(), uuid.New()
		mappings.On("SaveTaxGroupMapping", mock.Anything, testTenantID, taxGroup, payable).
			Return(&accounting.TaxGroupMapping{TaxGroupID: taxGroup, PayableAccountID: payable}, nil)

		w := performRequest(router, http.MethodPut, "/mappings/tax-groups/"+taxGroup.String(), AccountMappingRequest{AccountID: payable.String()})

		require.Equal(t, http.StatusOK, w.Code)
		mappings.AssertExpectations(t)
	})

	t.Run("tax group rejects a malformed ID", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()

		w := performRequest(router, http.MethodPut, "/mappings/tax-groups/state", AccountMappingRequest{AccountID: uuid.New().String()})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mappings.AssertNotCalled(t, "SaveTaxGroupMapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("discount", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()
		contra := uuid.New()
		mappings.On("SaveDiscountMapping", mock.Anything, testTenantID, "employee", contra).
			Return(&accounting.DiscountMapping{Classification: "employee", ContraAccountID: contra}, nil)

		w := performRequest(router, http.MethodPut, "/mappings/discounts/employee", AccountMappingRequest{AccountID: contra.String()})

		require.Equal(t, http.StatusOK, w.Code)
		mappings.AssertExpectations(t)
	})

	t.Run("rejects a missing account", func(t *testing.T) {
		router, _ := setupMappingTestRouter()

		w := performRequest(router, http.MethodPut, "/mappings/discounts/employee", map[string]string{"account_id": "x"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMappingHandler_ListUnmapped(t *testing.T) {
	t.Run("should filter and page", func(t *testing.T) {
		router, mappings := setupMappingTestRouter()
		eventID, fallback := uuid.New(), uuid.New()

		mappings.On("ListUnmappedEvents", mock.Anything, testTenantID, mock.MatchedBy(func(f accounting.UnmappedFilter) bool {
			return f.Page == 1 && f.PageSize == 50 &&
				f.EntityType == accounting.EntitySubDepartment &&
				f.Severity == accounting.SeverityWarning &&
				f.ReferenceID == "T-1001"
		})).Return(&shared.Paginated[*accounting.UnmappedEvent]{
			Items: []*accounting.UnmappedEvent{{
				ID:                uuid.New(),
				EventID:           &eventID,
				EventType:         "tender.recorded.v1",
				SourceModule:      accounting.SourcePOS,
				SourceReferenceID: "T-1001",
				EntityType:        accounting.EntitySubDepartment,
				EntityID:          "sd-42",
				FallbackAccountID: &fallback,
				Reason:            "No revenue mapping for sub-department",
				Severity:          accounting.SeverityWarning,
				CreatedAt:         time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC),
			}},
			Total: 1, Page: 1, PageSize: 50,
		}, nil)

		w := performRequest(router, http.MethodGet,
			"/unmapped-events?page_size=50&entity_type=sub_department&severity=warning&reference_id=T-1001", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var rows []UnmappedEventResponse
		decodeData(t, w, &rows)
		require.Len(t, rows, 1)
		assert.Equal(t, "sd-42", rows[0].EntityID)
		require.NotNil(t, rows[0].FallbackAccountID)
		assert.Equal(t, fallback.String(), *rows[0].FallbackAccountID)
		mappings.AssertExpectations(t)
	})

	t.Run("should reject an unknown severity", func(t *testing.T) {
		router, _ := setupMappingTestRouter()

		w := performRequest(router, http.MethodGet, "/unmapped-events?severity=info", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMappingHandler_CountUnmapped(t *testing.T) {
	router, mappings := setupMappingTestRouter()
	mappings.On("CountUnmappedByEntityType", mock.Anything, testTenantID).Return(map[accounting.UnmappedEntityType]int64{
		accounting.EntitySubDepartment: 4,
		accounting.EntityJournal:       1,
	}, nil)

	w := performRequest(router, http.MethodGet, "/unmapped-events/counts", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var counts map[string]int64
	decodeData(t, w, &counts)
	assert.Equal(t, int64(4), counts["sub_department"])
	assert.Equal(t, int64(1), counts["journal"])
}
