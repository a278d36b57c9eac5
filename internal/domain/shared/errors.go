package shared

import "fmt"

// DomainError is a rule violation identified by a stable code. Two
// DomainErrors match under errors.Is when their codes are equal, so a
// formatted error still matches its sentinel.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Withf returns an error with e's code and a formatted message
func (e *DomainError) Withf(format string, args ...any) *DomainError {
	return &DomainError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidState = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
