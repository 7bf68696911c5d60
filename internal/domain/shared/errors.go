package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrAllocationMismatch  = NewDomainError("ALLOCATION_MISMATCH", "Manual batch selection does not match requested quantity")
	ErrCatalogUnavailable  = NewDomainError("BATCH_CATALOG_UNAVAILABLE", "Batch catalog could not be read")
	ErrBalanceInconsistent = NewDomainError("BALANCE_READ_INCONSISTENCY", "No original ledger transaction found for posted line")
	ErrDuplicatePosting    = NewDomainError("DUPLICATE_POSTING", "Document posting already in progress or completed")
)
