package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// ServiceError is a failure that carries a message fit for the caller.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Wrap returns a ServiceError for op, or nil when err is nil.
func Wrap(op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Op: op, Message: message, Err: err}
}

// Invalid returns a validation ServiceError.
func Invalid(op, message string) error {
	return &ServiceError{Op: op, Message: message, Err: ErrValidation}
}

// NotFound returns a not-found ServiceError for resource.
func NotFound(op, resource string) error {
	return &ServiceError{Op: op, Message: resource + " not found", Err: ErrNotFound}
}

// Conflict returns a conflict ServiceError.
func Conflict(op, message string) error {
	return &ServiceError{Op: op, Message: message, Err: ErrConflict}
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }

// MessageOf returns the human-readable message of the outermost
// ServiceError, or a generic one.
func MessageOf(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return "internal error"
}
