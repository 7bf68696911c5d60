package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"not found", ErrCodeNotFound, http.StatusNotFound},
		{"already exists", ErrCodeAlreadyExists, http.StatusConflict},
		{"validation", ErrCodeValidation, http.StatusBadRequest},
		{"invalid input", ErrCodeInvalidInput, http.StatusBadRequest},
		{"invalid state", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"insufficient stock", ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{"allocation mismatch", ErrCodeAllocationMismatch, http.StatusUnprocessableEntity},
		{"duplicate posting", ErrCodeDuplicatePosting, http.StatusConflict},
		{"balance inconsistent", ErrCodeBalanceInconsistent, http.StatusConflict},
		{"feature disabled", ErrCodeFeatureDisabled, http.StatusForbidden},
		{"catalog unavailable", ErrCodeCatalogUnavailable, http.StatusServiceUnavailable},
		{"internal", ErrCodeInternal, http.StatusInternalServerError},
		{"unknown code falls back to 500", "ERR_NO_SUCH_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"domain not found", "NOT_FOUND", ErrCodeNotFound},
		{"domain allocation mismatch", "ALLOCATION_MISMATCH", ErrCodeAllocationMismatch},
		{"domain duplicate posting", "DUPLICATE_POSTING", ErrCodeDuplicatePosting},
		{"domain batch catalog unavailable", "BATCH_CATALOG_UNAVAILABLE", ErrCodeCatalogUnavailable},
		{"domain balance inconsistency", "BALANCE_READ_INCONSISTENCY", ErrCodeBalanceInconsistent},
		{"domain posted edit disabled", "POSTED_EDIT_DISABLED", ErrCodeFeatureDisabled},
		{"domain batch not found", "BATCH_NOT_FOUND", ErrCodeNotFound},
		{"domain invalid quantity", "INVALID_QUANTITY", ErrCodeInvalidInput},
		{"already normalized", ErrCodeNotFound, ErrCodeNotFound},
		{"unknown passes through", "SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.code))
		})
	}
}

func TestNormalizedCodesResolveToStatus(t *testing.T) {
	// Every domain code must land on a mapped HTTP status, never the 500 fallback
	for domainCode, apiCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "domain code %s maps to unmapped API code %s", domainCode, apiCode)
	}
}
