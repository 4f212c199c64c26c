package shared

import "errors"

// DomainError is a business rule violation carrying a stable code. The code
// is what the HTTP layer maps to a status; the message is shown to users.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewDomainError returns a DomainError with the given code and message
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on Code, so a sentinel still matches after errors.Is walks a
// chain built with fmt.Errorf("...: %w").
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	return errors.As(target, &other) && e.Code == other.Code
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)
