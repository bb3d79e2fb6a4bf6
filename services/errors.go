package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrNetwork           = errors.New("network error")
)

// StateError is a domain error. Kind is one of the sentinels above so
// callers can use errors.Is; Field names the offending input when known.
type StateError struct {
	Kind    error
	Field   string
	Message string
	Err     error
}

func (e *StateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *StateError) Is(target error) bool {
	return target == e.Kind
}

func (e *StateError) Unwrap() error {
	return e.Err
}

func validationError(field, msg string) error {
	return &StateError{Kind: ErrValidation, Field: field, Message: msg}
}

func conflictError(msg string) error {
	return &StateError{Kind: ErrConflict, Message: msg}
}

func invalidTransitionError(from, to string) error {
	return &StateError{
		Kind:    ErrInvalidTransition,
		Field:   "status",
		Message: fmt.Sprintf("cannot move order from %s to %s", from, to),
	}
}

func notFoundError(what string, id interface{}) error {
	return &StateError{Kind: ErrNotFound, Message: fmt.Sprintf("%s %v not found", what, id)}
}

// classifyDBError turns driver failures into domain errors. Anything already
// classified passes through unchanged.
func classifyDBError(err error) error {
	if err == nil {
		return nil
	}
	var se *StateError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &StateError{Kind: ErrNotFound, Message: "record not found", Err: err}
	}
	if isNetworkError(err) {
		return &StateError{Kind: ErrNetwork, Message: "database unavailable, please retry", Err: err}
	}
	return err
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// FieldOf returns the input field a domain error refers to, if any.
func FieldOf(err error) string {
	var se *StateError
	if errors.As(err, &se) {
		return se.Field
	}
	return ""
}
