package handler

import (
	"context"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/auth"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/erp/posting/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JournalService is the posting API the journal handler drives
type JournalService interface {
	PostEntry(ctx context.Context, cmd appaccounting.PostEntryCommand) (*appaccounting.PostEntryResult, error)
	PostDraftEntry(ctx context.Context, tenantID, entryID, actorID uuid.UUID, hasControlPermission bool) (*accounting.JournalEntry, error)
	VoidJournalEntry(ctx context.Context, cmd appaccounting.VoidEntryCommand) (*accounting.JournalEntry, error)
	GetJournalEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*accounting.JournalEntry, error)
	ListJournalEntries(ctx context.Context, tenantID uuid.UUID, filter accounting.JournalFilter) (*shared.Paginated[*accounting.JournalEntry], error)
}

// ControlAccountAuthorizer decides whether the caller may post to control accounts
type ControlAccountAuthorizer interface {
	CanPostControlAccounts(claims *auth.Claims) bool
}

// JournalHandler handles journal entry HTTP requests
type JournalHandler struct {
	BaseHandler
	journals   JournalService
	authorizer ControlAccountAuthorizer
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journals JournalService, authorizer ControlAccountAuthorizer) *JournalHandler {
	return &JournalHandler{journals: journals, authorizer: authorizer}
}

func (h *JournalHandler) canPostControlAccounts(c *gin.Context) bool {
	return h.authorizer != nil && h.authorizer.CanPostControlAccounts(middleware.GetJWTClaims(c))
}

// PostEntry godoc
// @ID           postJournalEntry
// @Summary      Post a journal entry
// @Description  Validate a balanced set of lines and post it. A repeated source reference returns the existing entry.
// @Tags         journal
// @Accept       json
// @Produce      json
// @Param        request body PostJournalEntryRequest true "Journal entry"
// @Success      201 {object} APIResponse[PostJournalEntryResponse]
// @Success      200 {object} APIResponse[PostJournalEntryResponse] "Already posted"
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /journal-entries [post]
func (h *JournalHandler) PostEntry(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}

	var req PostJournalEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	businessDate, err := parseDate(req.BusinessDate)
	if err != nil {
		h.BadRequest(c, "Invalid business_date")
		return
	}
	rate, err := toDecimalPtr(req.ExchangeRate)
	if err != nil {
		h.BadRequest(c, "Invalid exchange_rate")
		return
	}
	lines := make([]accounting.ProposedLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		line, err := l.toProposed()
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		lines = append(lines, line)
	}

	result, err := h.journals.PostEntry(c.Request.Context(), appaccounting.PostEntryCommand{
		TenantID:                    tenantID,
		BusinessDate:                businessDate,
		SourceModule:                accounting.SourceModule(req.SourceModule),
		SourceReferenceID:           req.SourceReferenceID,
		CorrelationID:               req.CorrelationID,
		Currency:                    req.Currency,
		ExchangeRate:                rate,
		Memo:                        req.Memo,
		Lines:                       lines,
		ForcePost:                   req.ForcePost,
		ActorID:                     actorID,
		HasControlAccountPermission: h.canPostControlAccounts(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := PostJournalEntryResponse{
		Entry:         toJournalEntryResponse(result.Entry),
		AlreadyPosted: result.AlreadyPosted,
		Warnings:      result.Warnings,
	}
	if result.AlreadyPosted {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// PostDraft godoc
// @ID           postDraftJournalEntry
// @Summary      Post a draft journal entry
// @Description  Re-validate a draft against current settings and post it
// @Tags         journal
// @Produce      json
// @Param        id path string true "Journal Entry ID" format(uuid)
// @Success      200 {object} APIResponse[JournalEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /journal-entries/{id}/post [post]
func (h *JournalHandler) PostDraft(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "journal entry ID")
	if !ok {
		return
	}

	entry, err := h.journals.PostDraftEntry(c.Request.Context(), tenantID, id, actorID, h.canPostControlAccounts(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toJournalEntryResponse(entry))
}

// Void godoc
// @ID           voidJournalEntry
// @Summary      Void a journal entry
// @Description  Post the reversing entry of a posted journal entry and mark the original voided
// @Tags         journal
// @Accept       json
// @Produce      json
// @Param        id path string true "Journal Entry ID" format(uuid)
// @Param        request body VoidJournalEntryRequest true "Void reason"
// @Success      200 {object} APIResponse[JournalEntryResponse] "The reversing entry"
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /journal-entries/{id}/void [post]
func (h *JournalHandler) Void(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "journal entry ID")
	if !ok {
		return
	}

	var req VoidJournalEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	voidDate, err := parseDate(req.VoidDate)
	if err != nil {
		h.BadRequest(c, "Invalid void_date")
		return
	}

	reversal, err := h.journals.VoidJournalEntry(c.Request.Context(), appaccounting.VoidEntryCommand{
		TenantID: tenantID,
		EntryID:  id,
		Reason:   req.Reason,
		ActorID:  actorID,
		VoidDate: voidDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toJournalEntryResponse(reversal))
}

// Get godoc
// @ID           getJournalEntry
// @Summary      Get a journal entry
// @Description  Retrieve a journal entry with its lines
// @Tags         journal
// @Produce      json
// @Param        id path string true "Journal Entry ID" format(uuid)
// @Success      200 {object} APIResponse[JournalEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /journal-entries/{id} [get]
func (h *JournalHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}
	id, ok := h.pathUUID(c, "id", "journal entry ID")
	if !ok {
		return
	}

	entry, err := h.journals.GetJournalEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toJournalEntryResponse(entry))
}

// List godoc
// @ID           listJournalEntries
// @Summary      List journal entries
// @Description  Paginated journal entries, newest business date first
// @Tags         journal
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        status query string false "Entry status" Enums(draft, posted, voided)
// @Param        source_module query string false "Source module"
// @Param        period query string false "Posting period (YYYY-MM)"
// @Param        from query string false "Business date from (YYYY-MM-DD)"
// @Param        to query string false "Business date to (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[[]JournalEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /journal-entries [get]
func (h *JournalHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var q JournalListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	from, err := parseOptionalDate(q.From)
	if err != nil {
		h.BadRequest(c, "Invalid from date")
		return
	}
	to, err := parseOptionalDate(q.To)
	if err != nil {
		h.BadRequest(c, "Invalid to date")
		return
	}

	page := dto.ListRequest{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()

	result, err := h.journals.ListJournalEntries(c.Request.Context(), tenantID, accounting.JournalFilter{
		Filter:       shared.Filter{Page: page.Page, PageSize: page.PageSize},
		Status:       accounting.JournalStatus(q.Status),
		SourceModule: accounting.SourceModule(q.SourceModule),
		Period:       q.Period,
		From:         from,
		To:           to,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toJournalEntryResponses(result.Items), result.Total, result.Page, result.PageSize)
}
