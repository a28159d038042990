package dto

import (
	"net/http"

	"github.com/mfgorder/backend/internal/domain/shared"
)

// API error codes, ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	// A batch or project is in the wrong state for the operation
	ErrCodeInvalidState           = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock      = "ERR_INSUFFICIENT_STOCK"
	ErrCodeRestoreExceedsExported = "ERR_RESTORE_EXCEEDS_EXPORTED"
	ErrCodeExportExceedsEntry     = "ERR_EXPORT_EXCEEDS_ENTRY"
	// Stored counters disagree with each other
	ErrCodeInvariantViolation = "ERR_INVARIANT_VIOLATION"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// apiCode is one row of the error table. domain is empty for codes only the
// HTTP layer raises.
type apiCode struct {
	code   string
	status int
	domain string
}

var apiCodes = []apiCode{
	{ErrCodeUnknown, http.StatusInternalServerError, ""},
	{ErrCodeInternal, http.StatusInternalServerError, shared.CodeInternal},

	{ErrCodeValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrCodeValidationRequired, http.StatusBadRequest, ""},
	{ErrCodeValidationFormat, http.StatusBadRequest, ""},
	{ErrCodeValidationRange, http.StatusBadRequest, ""},

	{ErrCodeNotFound, http.StatusNotFound, shared.CodeNotFound},
	{ErrCodeAlreadyExists, http.StatusConflict, shared.CodeAlreadyExists},
	{ErrCodeConflict, http.StatusConflict, ""},
	{ErrCodeConcurrencyConflict, http.StatusConflict, shared.CodeConcurrencyConflict},

	// Ledger rules are 422, corrupted counters are a conflict
	{ErrCodeInvalidState, http.StatusUnprocessableEntity, shared.CodeInvalidState},
	{ErrCodeInsufficientStock, http.StatusUnprocessableEntity, shared.CodeInsufficientStock},
	{ErrCodeRestoreExceedsExported, http.StatusUnprocessableEntity, shared.CodeRestoreExceedsExported},
	{ErrCodeExportExceedsEntry, http.StatusUnprocessableEntity, shared.CodeExportExceedsEntry},
	{ErrCodeInvariantViolation, http.StatusConflict, shared.CodeInvariantViolation},

	{ErrCodeBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
	{ErrCodeInvalidInput, http.StatusBadRequest, shared.CodeInvalidInput},
	{ErrCodeInvalidJSON, http.StatusBadRequest, ""},
	{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge, ""},
}

var (
	// ErrorCodeHTTPStatus is the response status of each API code
	ErrorCodeHTTPStatus = make(map[string]int, len(apiCodes))
	// DomainErrorCodeMapping translates shared.DomainError codes to API codes
	DomainErrorCodeMapping = make(map[string]string, len(apiCodes))
)

func init() {
	for _, c := range apiCodes {
		ErrorCodeHTTPStatus[c.code] = c.status
		if c.domain != "" {
			DomainErrorCodeMapping[c.domain] = c.code
		}
	}
}

// GetHTTPStatus returns the status for an API code, 500 when it is unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode converts a domain code to its API code. API codes and
// unknown codes pass through.
func NormalizeErrorCode(code string) string {
	if api, ok := DomainErrorCodeMapping[code]; ok {
		return api
	}
	return code
}
