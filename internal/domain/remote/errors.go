package remote

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by ServiceError.
var (
	ErrNotFound           = errors.New("remote entity not found")
	ErrServiceUnavailable = errors.New("remote service unavailable")
	ErrRequestFailed      = errors.New("remote request failed")
)

// Service names used in errors and telemetry.
const (
	ServiceSets       = "sets"
	ServiceMaterials  = "materials"
	ServiceContainers = "containers"
	ServiceStudy      = "study"
)

// ServiceError describes a failed call to a remote service.
type ServiceError struct {
	Service    string
	Operation  string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Service, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
}

// Unwrap returns the underlying cause
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NotFound builds the error returned when a referenced UUID resolves to nothing.
func NotFound(service, id string) error {
	return &ServiceError{
		Service:   service,
		Operation: "find " + id,
		Err:       ErrNotFound,
	}
}

// IsNotFound reports whether err is a remote not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
