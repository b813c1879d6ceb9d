package handler

import "github.com/erp/posting/internal/interfaces/http/dto"

// Swagger-only envelopes. Handlers write dto responses; these give the generated
// docs a typed data field.

// APIResponse wraps one ledger resource
// @Description Ledger API envelope with a typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse carries a ledger error code such as PERIOD_LOCKED or UNBALANCED_JOURNAL
// @Description Ledger error envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// CountData is the body of count endpoints, e.g. purged outbox rows
type CountData struct {
	Count int64 `json:"count" example:"42"`
}
