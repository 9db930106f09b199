// Package services holds the view-state layer: one holder per screen-sized
// concern (notes, patient info, medications) that validates user actions,
// forwards them to the repositories or the reminder scheduler, and keeps an
// always-current projection of what the user sees.
//
// This file centralizes the service-level error values. Translation into
// HTTP status codes happens in the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/elderly-care-backend/internal/validate"
)

var (
	// ErrNoteNotFound indicates that the requested note does not exist.
	ErrNoteNotFound = errors.New("note not found")

	// ErrPatientInfoNotFound indicates that the requested patient-info record
	// does not exist.
	ErrPatientInfoNotFound = errors.New("patient info not found")

	// ErrScheduleNotFound indicates that no scheduled medication carries the
	// given job id.
	ErrScheduleNotFound = errors.New("medication schedule not found")

	// ErrInvalidInput is matched by every *InputError.
	ErrInvalidInput = errors.New("invalid input")
)

// InputError reports rejected user input together with the validation
// result that explains it.
type InputError struct {
	Result validate.Result
}

func invalid(r validate.Result) error { return &InputError{Result: r} }

func (e *InputError) Error() string { return e.Result.Message() }

// Unwrap makes errors.Is(err, ErrInvalidInput) hold.
func (e *InputError) Unwrap() error { return ErrInvalidInput }
