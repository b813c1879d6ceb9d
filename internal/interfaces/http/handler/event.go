package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/infrastructure/event"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxReplayWindow bounds a single replay request
const maxReplayWindow = 92 * 24 * time.Hour

// EventInbox queues inbound business events for the posting consumers
type EventInbox interface {
	Accept(ctx context.Context, tenantID uuid.UUID, payload []byte) (*event.AcceptResult, error)
}

// EventReplayer re-runs the posting adapters over historical events
type EventReplayer interface {
	Replay(ctx context.Context, cmd appaccounting.ReplayCommand) (*appaccounting.ReplayReport, error)
}

// AcceptEventResponse acknowledges an inbound event
// @Description Inbound event acknowledgement
type AcceptEventResponse struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type" example:"tender.recorded.v1"`
	Duplicate bool   `json:"duplicate"`
}

// ReplayRequest selects the business dates to replay
type ReplayRequest struct {
	From   string `json:"from" binding:"required,datetime=2006-01-02" example:"2026-03-01"`
	To     string `json:"to" binding:"required,datetime=2006-01-02" example:"2026-03-31"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// ReplayTypeCount is the number of replayed events of one type
type ReplayTypeCount struct {
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
}

// ReplayResponse summarizes a replay run
type ReplayResponse struct {
	Events     int               `json:"events"`
	Dispatched int               `json:"dispatched"`
	Unhandled  int               `json:"unhandled"`
	Failed     int               `json:"failed"`
	DryRun     bool              `json:"dry_run"`
	ByType     []ReplayTypeCount `json:"by_type"`
}

// EventHandler handles inbound event and replay HTTP requests
type EventHandler struct {
	BaseHandler
	inbox    EventInbox
	replayer EventReplayer
}

// NewEventHandler creates a new EventHandler. replayer may be nil when no business
// record source is configured.
func NewEventHandler(inbox EventInbox, replayer EventReplayer) *EventHandler {
	return &EventHandler{inbox: inbox, replayer: replayer}
}

// Ingest godoc
// @ID           ingestEvent
// @Summary      Deliver a business event
// @Description  Queue one inbound business event for posting. Redelivery of an event ID is acknowledged as a duplicate.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body object true "Event envelope"
// @Success      202 {object} APIResponse[AcceptEventResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /events [post]
func (h *EventHandler) Ingest(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body could not be read")
		return
	}
	if len(payload) == 0 {
		h.BadRequest(c, "Event body is required")
		return
	}

	result, err := h.inbox.Accept(c.Request.Context(), tenantID, payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, AcceptEventResponse{
		EventID:   result.Event.EventID().String(),
		EventType: result.Event.EventType(),
		Duplicate: result.Duplicate,
	})
}

// Replay godoc
// @ID           replayEvents
// @Summary      Replay business events
// @Description  Rebuild the tenant's business events for a date range and post what is missing
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body ReplayRequest true "Date range"
// @Success      200 {object} APIResponse[ReplayResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /events/replay [post]
func (h *EventHandler) Replay(c *gin.Context) {
	if h.replayer == nil {
		h.NotFound(c, "Replay is not configured")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var req ReplayRequest
	if !h.BindJSON(c, &req) {
		return
	}
	from, errFrom := parseDate(req.From)
	to, errTo := parseDate(req.To)
	if errFrom != nil || errTo != nil {
		h.BadRequest(c, "Invalid date range")
		return
	}
	if to.Before(from) {
		h.BadRequest(c, "to must not be before from")
		return
	}
	if to.Sub(from) > maxReplayWindow {
		h.BadRequest(c, "Replay window is limited to 92 days")
		return
	}

	report, err := h.replayer.Replay(c.Request.Context(), appaccounting.ReplayCommand{
		TenantID: tenantID,
		From:     from,
		To:       to,
		DryRun:   req.DryRun,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := ReplayResponse{
		Events:     report.Events,
		Dispatched: report.Dispatched,
		Unhandled:  report.Unhandled,
		Failed:     report.Failed,
		DryRun:     req.DryRun,
		ByType:     make([]ReplayTypeCount, 0, len(report.ByType)),
	}
	for t, n := range report.ByType {
		resp.ByType = append(resp.ByType, ReplayTypeCount{EventType: t, Count: n})
	}
	sort.Slice(resp.ByType, func(i, j int) bool { return resp.ByType[i].EventType < resp.ByType[j].EventType })

	h.Success(c, resp)
}
