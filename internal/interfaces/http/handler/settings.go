package handler

import (
	"context"
	"slices"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettingsService is the tenant settings API the settings handler drives
type SettingsService interface {
	GetSettings(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, error)
	UpdateSettings(ctx context.Context, cmd appaccounting.UpdateSettingsCommand) (*accounting.AccountingSettings, error)
}

// UpdateSettingsRequest changes a tenant's posting configuration. Omitted fields are left as they are.
// @Description Settings changes guarded by the version read with them
type UpdateSettingsRequest struct {
	// Version is the settings version the change was based on, 0 to skip the check
	Version                int               `json:"version" binding:"min=0" example:"3"`
	LockPeriodThrough      *string           `json:"lock_period_through,omitempty" binding:"omitempty,datetime=2006-01" example:"2026-02"`
	RoundingToleranceMinor *int              `json:"rounding_tolerance_minor,omitempty" binding:"omitempty,min=0,max=100"`
	RoundingAccountID      *string           `json:"rounding_account_id,omitempty" binding:"omitempty,uuid"`
	AutoPostMode           *string           `json:"auto_post_mode,omitempty" binding:"omitempty,oneof=auto_post draft_only"`
	SupportedCurrencies    []string          `json:"supported_currencies,omitempty" binding:"omitempty,dive,currency"`
	MaxEventRetries        *int              `json:"max_event_retries,omitempty" binding:"omitempty,min=1,max=20"`
	Fallbacks              map[string]string `json:"fallback_accounts,omitempty"`
}

// SettingsResponse is a tenant's posting configuration
// @Description Tenant accounting settings
type SettingsResponse struct {
	BaseCurrency           string            `json:"base_currency" example:"USD"`
	SupportedCurrencies    []string          `json:"supported_currencies"`
	AutoPostMode           string            `json:"auto_post_mode" example:"auto_post"`
	LockPeriodThrough      string            `json:"lock_period_through,omitempty" example:"2026-02"`
	RoundingToleranceMinor int               `json:"rounding_tolerance_minor" example:"5"`
	RoundingAccountID      *string           `json:"rounding_account_id,omitempty"`
	MaxEventRetries        int               `json:"max_event_retries" example:"3"`
	FallbackAccounts       map[string]string `json:"fallback_accounts"`
	MissingFallbacks       []string          `json:"missing_fallbacks,omitempty"`
	Version                int               `json:"version"`
}

func toSettingsResponse(s *accounting.AccountingSettings) SettingsResponse {
	resp := SettingsResponse{
		BaseCurrency:           s.BaseCurrency,
		SupportedCurrencies:    s.SupportedCurrencies,
		AutoPostMode:           string(s.AutoPostMode),
		LockPeriodThrough:      s.LockPeriodThrough,
		RoundingToleranceMinor: s.RoundingToleranceMinor,
		RoundingAccountID:      uuidString(s.RoundingAccountID),
		MaxEventRetries:        s.MaxEventRetries,
		FallbackAccounts:       make(map[string]string, len(s.Defaults)),
		Version:                s.Version,
	}
	for slot, id := range s.Defaults {
		resp.FallbackAccounts[string(slot)] = id.String()
	}
	for _, slot := range s.Defaults.Missing() {
		resp.MissingFallbacks = append(resp.MissingFallbacks, string(slot))
	}
	return resp
}

// SettingsHandler handles tenant settings HTTP requests
type SettingsHandler struct {
	BaseHandler
	settings SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get godoc
// @ID           getAccountingSettings
// @Summary      Get accounting settings
// @Description  The tenant's posting configuration, created with the default chart on first read
// @Tags         settings
// @Produce      json
// @Success      200 {object} APIResponse[SettingsResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	settings, err := h.settings.GetSettings(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSettingsResponse(settings))
}

// Update godoc
// @ID           updateAccountingSettings
// @Summary      Update accounting settings
// @Description  Change the lock period, rounding, auto-post mode, currencies, retry budget or fallback accounts
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request body UpdateSettingsRequest true "Changes"
// @Success      200 {object} APIResponse[SettingsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var req UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	roundingID, err := parseOptionalUUID(req.RoundingAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid rounding_account_id")
		return
	}

	cmd := appaccounting.UpdateSettingsCommand{
		TenantID:               tenantID,
		ExpectedVersion:        req.Version,
		LockPeriodThrough:      req.LockPeriodThrough,
		RoundingToleranceMinor: req.RoundingToleranceMinor,
		RoundingAccountID:      roundingID,
		SupportedCurrencies:    req.SupportedCurrencies,
		MaxEventRetries:        req.MaxEventRetries,
	}
	if req.AutoPostMode != nil {
		mode := accounting.AutoPostMode(*req.AutoPostMode)
		cmd.AutoPostMode = &mode
	}
	if len(req.Fallbacks) > 0 {
		cmd.Fallbacks = make(map[accounting.FallbackSlot]uuid.UUID, len(req.Fallbacks))
		for slot, raw := range req.Fallbacks {
			if !slices.Contains(accounting.AllFallbackSlots, accounting.FallbackSlot(slot)) {
				h.BadRequest(c, "Unknown fallback slot: "+slot)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				h.BadRequest(c, "Invalid account for fallback slot "+slot)
				return
			}
			cmd.Fallbacks[accounting.FallbackSlot(slot)] = id
		}
	}

	settings, err := h.settings.UpdateSettings(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSettingsResponse(settings))
}
