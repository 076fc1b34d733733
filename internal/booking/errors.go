// Package booking implements interval parsing and duration-based pricing
// for bookable services.
package booking

import (
	"errors"
	"fmt"
)

// Validation error codes. These always indicate bad caller input and are
// recoverable by asking the user to re-enter their selection.
const (
	CodeMalformedInput  = "malformed_input"
	CodeInvalidRange    = "invalid_range"
	CodeBelowMinimum    = "below_minimum"
	CodeAboveMaximum    = "above_maximum"
	CodeUnsupportedType = "unsupported_booking_type"
)

// ValidationError describes rejected booking input.
type ValidationError struct {
	Code  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Msg, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Msg, e.Code)
}

func newValidationError(code, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Conflict reasons.
const (
	// ConflictOverlap means the candidate interval collides with existing
	// reservations; the caller should pick a different slot.
	ConflictOverlap = "overlap"
	// ConflictBusy means the per-item critical section could not be
	// entered in time; the operation is safe to retry.
	ConflictBusy = "busy"
)

// ConflictError signals contention with other bookings of the same item.
type ConflictError struct {
	Reason string
	ItemID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflict on item %d: %s", e.ItemID, e.Reason)
}

// NewOverlapConflict builds the conflict returned when a slot is taken.
func NewOverlapConflict(itemID int64) *ConflictError {
	return &ConflictError{Reason: ConflictOverlap, ItemID: itemID}
}

// NewBusyConflict builds the transient conflict returned on lock timeout.
func NewBusyConflict(itemID int64) *ConflictError {
	return &ConflictError{Reason: ConflictBusy, ItemID: itemID}
}

// IsConflict reports whether err is a ConflictError and returns it.
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
