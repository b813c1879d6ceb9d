package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Ledger error codes pass through unchanged so clients can branch on them.
const (
	ErrCodeUnbalancedJournal        = "UNBALANCED_JOURNAL"
	ErrCodePeriodLocked             = "PERIOD_LOCKED"
	ErrCodeControlAccountRestricted = "CONTROL_ACCOUNT_RESTRICTED"
	ErrCodeCurrencyMismatch         = "CURRENCY_MISMATCH"
	ErrCodeUnsupportedCurrency      = "UNSUPPORTED_CURRENCY"
	ErrCodeExchangeRateRequired     = "EXCHANGE_RATE_REQUIRED"
	ErrCodeAccountNotFound          = "ACCOUNT_NOT_FOUND"
	ErrCodeInactiveAccount          = "INACTIVE_ACCOUNT"
	ErrCodeMissingMapping           = "MISSING_MAPPING"
	ErrCodeInvalidJournalLine       = "INVALID_JOURNAL_LINE"
	ErrCodeDuplicatePosting         = "DUPLICATE_POSTING"
	ErrCodeAccountNumberExists      = "ACCOUNT_NUMBER_EXISTS"
	ErrCodeAccountTypeLocked        = "ACCOUNT_TYPE_LOCKED"
	ErrCodeCircularHierarchy        = "CIRCULAR_HIERARCHY"
	ErrCodeAccountInUse             = "ACCOUNT_IN_USE"
	ErrCodeFallbackAccountRequired  = "FALLBACK_ACCOUNT_REQUIRED"
	ErrCodeInvalidMerge             = "INVALID_MERGE"
	ErrCodeEntryNotPosted           = "ENTRY_NOT_POSTED"
	ErrCodeInvalidAccount           = "INVALID_ACCOUNT"
	ErrCodeInvalidEvent             = "INVALID_EVENT"
	ErrCodeUnknownEventType         = "UNKNOWN_EVENT_TYPE"
	ErrCodeTenantMismatch           = "TENANT_MISMATCH"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	// Journal validation and account rules -> 422 Unprocessable Entity
	ErrCodeUnbalancedJournal:        http.StatusUnprocessableEntity,
	ErrCodePeriodLocked:             http.StatusUnprocessableEntity,
	ErrCodeControlAccountRestricted: http.StatusUnprocessableEntity,
	ErrCodeCurrencyMismatch:         http.StatusUnprocessableEntity,
	ErrCodeUnsupportedCurrency:      http.StatusUnprocessableEntity,
	ErrCodeExchangeRateRequired:     http.StatusUnprocessableEntity,
	ErrCodeAccountNotFound:          http.StatusUnprocessableEntity,
	ErrCodeInactiveAccount:          http.StatusUnprocessableEntity,
	ErrCodeMissingMapping:           http.StatusUnprocessableEntity,
	ErrCodeInvalidJournalLine:       http.StatusUnprocessableEntity,
	ErrCodeAccountTypeLocked:        http.StatusUnprocessableEntity,
	ErrCodeCircularHierarchy:        http.StatusUnprocessableEntity,
	ErrCodeAccountInUse:             http.StatusUnprocessableEntity,
	ErrCodeFallbackAccountRequired:  http.StatusUnprocessableEntity,
	ErrCodeInvalidMerge:             http.StatusUnprocessableEntity,
	ErrCodeEntryNotPosted:           http.StatusUnprocessableEntity,
	ErrCodeInvalidAccount:           http.StatusUnprocessableEntity,
	ErrCodeInvalidEvent:             http.StatusUnprocessableEntity,
	ErrCodeUnknownEventType:         http.StatusUnprocessableEntity,

	ErrCodeDuplicatePosting:    http.StatusConflict,
	ErrCodeAccountNumberExists: http.StatusConflict,

	ErrCodeTenantMismatch: http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps the shared domain codes to the HTTP codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a shared domain code to the HTTP format.
// Ledger codes and unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
