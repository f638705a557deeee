package shop

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrEmptyCart refuses checkout of an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition rejects an order status change.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Validation reasons double as message keys for the user-facing reprompt.
const (
	ReasonTooShort      = "too_short"
	ReasonTooLong       = "too_long"
	ReasonInvalidPhone  = "invalid_phone"
	ReasonInvalidEmail  = "invalid_email"
	ReasonNotText       = "not_text"
	ReasonNotNumber     = "not_number"
	ReasonOutOfRange    = "out_of_range"
	ReasonUnknownOption = "unknown_option"
	ReasonUnknownStatus = "unknown_status"
	ReasonBelowMinimum  = "below_minimum"
	ReasonExpired       = "expired"
)

// ValidationError names the field and the specific defect of user input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Code() string { return "VALIDATION" }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Code() string { return "NOT_FOUND" }

// NotFound builds a NotFoundError.
func NotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// TransientError wraps storage or transport failures that may succeed later.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Code() string { return "TRANSIENT_IO" }

// Transient wraps err unless it is nil or already classified.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	var ve *ValidationError
	if errors.As(err, &nf) || errors.As(err, &ve) || errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrInvalidTransition) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
