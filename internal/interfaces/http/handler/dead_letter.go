package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeadLetterService is the remediation API for consumptions that exhausted their retries
type DeadLetterService interface {
	ListDeadLetters(ctx context.Context, filter shared.DeadLetterFilter) (*shared.Paginated[*shared.DeadLetter], error)
	GetDeadLetter(ctx context.Context, tenantID, id uuid.UUID) (*shared.DeadLetter, error)
	ReplayDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID) (*shared.DeadLetter, error)
	ResolveDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID, note string) (*shared.DeadLetter, error)
}

// DeadLetterListQuery is the query string of the dead letter listing
type DeadLetterListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=open replayed resolved"`
	Consumer string `form:"consumer"`
}

// ResolveDeadLetterRequest closes a dead letter without replaying it
type ResolveDeadLetterRequest struct {
	Note string `json:"note" binding:"required,max=1000" example:"Posted manually as JE-202603-000042"`
}

// DeadLetterAttemptResponse is one recorded failure
type DeadLetterAttemptResponse struct {
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
	At      string `json:"at"`
}

// DeadLetterResponse is a quarantined consumption
// @Description Dead-lettered event
type DeadLetterResponse struct {
	ID             string                      `json:"id"`
	EventID        string                      `json:"event_id"`
	Consumer       string                      `json:"consumer" example:"accounting.tender_posting"`
	EventType      string                      `json:"event_type"`
	Status         string                      `json:"status" example:"open"`
	ErrorMessage   string                      `json:"error_message"`
	ErrorStack     string                      `json:"error_stack,omitempty"`
	Attempts       int                         `json:"attempts"`
	History        []DeadLetterAttemptResponse `json:"history"`
	Payload        json.RawMessage             `json:"payload,omitempty" swaggertype:"object"`
	ResolvedBy     *string                     `json:"resolved_by,omitempty"`
	ResolutionNote string                      `json:"resolution_note,omitempty"`
	ResolvedAt     *string                     `json:"resolved_at,omitempty"`
	CreatedAt      string                      `json:"created_at"`
}

func toDeadLetterResponse(d *shared.DeadLetter, withPayload bool) DeadLetterResponse {
	resp := DeadLetterResponse{
		ID:             d.ID.String(),
		EventID:        d.EventID.String(),
		Consumer:       d.ConsumerName,
		EventType:      d.EventType,
		Status:         string(d.Status),
		ErrorMessage:   d.ErrorMessage,
		Attempts:       d.Attempts,
		History:        make([]DeadLetterAttemptResponse, 0, len(d.History)),
		ResolvedBy:     uuidString(d.ResolvedBy),
		ResolutionNote: d.ResolutionNote,
		ResolvedAt:     formatTime(d.ResolvedAt),
		CreatedAt:      d.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, a := range d.History {
		resp.History = append(resp.History, DeadLetterAttemptResponse{
			Attempt: a.Attempt,
			Error:   a.Error,
			At:      a.At.UTC().Format(time.RFC3339),
		})
	}
	if withPayload {
		resp.ErrorStack = d.ErrorStack
		if json.Valid(d.Payload) {
			resp.Payload = json.RawMessage(d.Payload)
		}
	}
	return resp
}

// DeadLetterHandler handles dead letter remediation HTTP requests
type DeadLetterHandler struct {
	BaseHandler
	deadLetters DeadLetterService
}

// NewDeadLetterHandler creates a new DeadLetterHandler
func NewDeadLetterHandler(deadLetters DeadLetterService) *DeadLetterHandler {
	return &DeadLetterHandler{deadLetters: deadLetters}
}

// List godoc
// @ID           listDeadLetters
// @Summary      List dead letters
// @Description  Consumptions that exhausted their retries, newest first
// @Tags         dead-letters
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        status query string false "Status" Enums(open, replayed, resolved)
// @Param        consumer query string false "Consumer name"
// @Success      200 {object} APIResponse[[]DeadLetterResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dead-letters [get]
func (h *DeadLetterHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var q DeadLetterListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.deadLetters.ListDeadLetters(c.Request.Context(), shared.DeadLetterFilter{
		TenantID:     tenantID,
		Status:       shared.DeadLetterStatus(q.Status),
		ConsumerName: q.Consumer,
		Page:         q.Page,
		PageSize:     q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]DeadLetterResponse, 0, len(result.Items))
	for _, d := range result.Items {
		items = append(items, toDeadLetterResponse(d, false))
	}
	h.SuccessWithMeta(c, items, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @ID           getDeadLetter
// @Summary      Get a dead letter
// @Description  A dead letter with its payload, stack and attempt history
// @Tags         dead-letters
// @Produce      json
// @Param        id path string true "Dead Letter ID" format(uuid)
// @Success      200 {object} APIResponse[DeadLetterResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dead-letters/{id} [get]
func (h *DeadLetterHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}
	id, ok := h.pathUUID(c, "id", "dead letter ID")
	if !ok {
		return
	}

	d, err := h.deadLetters.GetDeadLetter(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDeadLetterResponse(d, true))
}

// Replay godoc
// @ID           replayDeadLetter
// @Summary      Replay a dead letter
// @Description  Run the consumer again on the stored payload after the cause has been fixed
// @Tags         dead-letters
// @Produce      json
// @Param        id path string true "Dead Letter ID" format(uuid)
// @Success      200 {object} APIResponse[DeadLetterResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dead-letters/{id}/replay [post]
func (h *DeadLetterHandler) Replay(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "dead letter ID")
	if !ok {
		return
	}

	d, err := h.deadLetters.ReplayDeadLetter(c.Request.Context(), tenantID, id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDeadLetterResponse(d, false))
}

// Resolve godoc
// @ID           resolveDeadLetter
// @Summary      Resolve a dead letter
// @Description  Close a dead letter that was handled outside the ledger
// @Tags         dead-letters
// @Accept       json
// @Produce      json
// @Param        id path string true "Dead Letter ID" format(uuid)
// @Param        request body ResolveDeadLetterRequest true "Resolution"
// @Success      200 {object} APIResponse[DeadLetterResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dead-letters/{id}/resolve [post]
func (h *DeadLetterHandler) Resolve(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "dead letter ID")
	if !ok {
		return
	}

	var req ResolveDeadLetterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	d, err := h.deadLetters.ResolveDeadLetter(c.Request.Context(), tenantID, id, actorID, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDeadLetterResponse(d, false))
}
