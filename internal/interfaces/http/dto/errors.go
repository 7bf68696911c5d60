package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInsufficientStock is used when stock is insufficient
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeAllocationMismatch is used when a manual batch split does not
	// conserve the requested quantity
	ErrCodeAllocationMismatch = "ERR_ALLOCATION_MISMATCH"
	// ErrCodeDuplicatePosting is used when a document posting is already in flight
	ErrCodeDuplicatePosting = "ERR_DUPLICATE_POSTING"
	// ErrCodeBalanceInconsistent is used when a posted line has no ledger transaction
	ErrCodeBalanceInconsistent = "ERR_BALANCE_INCONSISTENT"
	// ErrCodeFeatureDisabled is used when the requested operation is switched off
	ErrCodeFeatureDisabled = "ERR_FEATURE_DISABLED"
)

// Dependency error codes
const (
	// ErrCodeCatalogUnavailable is used when the batch catalog cannot be read
	ErrCodeCatalogUnavailable = "ERR_CATALOG_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation and input errors -> 400 Bad Request
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:  http.StatusUnprocessableEntity,
	ErrCodeAllocationMismatch: http.StatusUnprocessableEntity,

	// Posting conflicts -> 409
	ErrCodeDuplicatePosting:    http.StatusConflict,
	ErrCodeBalanceInconsistent: http.StatusConflict,

	// Switched-off operations -> 403
	ErrCodeFeatureDisabled: http.StatusForbidden,

	// Upstream dependency failures -> 503
	ErrCodeCatalogUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the standardized API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                  ErrCodeNotFound,
	"ALREADY_EXISTS":             ErrCodeAlreadyExists,
	"INVALID_INPUT":              ErrCodeInvalidInput,
	"INVALID_STATE":              ErrCodeInvalidState,
	"INVALID_QUANTITY":           ErrCodeInvalidInput,
	"INVALID_MOVEMENT_KIND":      ErrCodeInvalidInput,
	"INVALID_DOC_NO":             ErrCodeInvalidInput,
	"INVALID_SITE":               ErrCodeInvalidInput,
	"INVALID_ALLOCATION":         ErrCodeInvalidInput,
	"EMPTY_DOCUMENT":             ErrCodeInvalidState,
	"INSUFFICIENT_STOCK":         ErrCodeInsufficientStock,
	"ALLOCATION_MISMATCH":        ErrCodeAllocationMismatch,
	"DUPLICATE_POSTING":          ErrCodeDuplicatePosting,
	"POSTED_EDIT_DISABLED":       ErrCodeFeatureDisabled,
	"MANUAL_SELECTION_DISABLED":  ErrCodeFeatureDisabled,
	"BATCH_CATALOG_UNAVAILABLE":  ErrCodeCatalogUnavailable,
	"BALANCE_READ_INCONSISTENCY": ErrCodeBalanceInconsistent,
	"BATCH_NOT_FOUND":            ErrCodeNotFound,
	"INTERNAL_ERROR":             ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
