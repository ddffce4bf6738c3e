package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors built with NewDomainError match the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists        = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict  = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState         = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock    = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrOverReceipt          = NewDomainError("OVER_RECEIPT", "Received quantity exceeds the outstanding quantity")
	ErrLedgerReconciliation = NewDomainError("LEDGER_RECONCILIATION", "Stock ledger does not reconcile")
	ErrEmptySelection       = NewDomainError("EMPTY_SELECTION", "No items selected")
	ErrLockNotObtained      = NewDomainError("LOCK_NOT_OBTAINED", "Stock is being updated by another request")
)

// InvalidStateError reports an action attempted on an aggregate whose current
// status does not allow it.
type InvalidStateError struct {
	Aggregate string
	Status    string
	Action    string
}

// NewInvalidStateError creates an InvalidStateError
func NewInvalidStateError(aggregate, status, action string) *InvalidStateError {
	return &InvalidStateError{Aggregate: aggregate, Status: status, Action: action}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Aggregate, e.Status)
}

// Unwrap exposes the INVALID_STATE domain error carrying the detailed message
func (e *InvalidStateError) Unwrap() error {
	return NewDomainError(ErrInvalidState.Code, e.Error())
}
