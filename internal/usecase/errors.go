package usecase

import (
	"errors"
	"fmt"

	"medical-office-api/internal/domain/entity"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrForbidden            = errors.New("you are not allowed to access this appointment")
	ErrSlotConflict         = errors.New("practitioner already has an appointment at this time")
	ErrSlotBusy             = errors.New("slot is being booked by another request, retry shortly")
	ErrConcurrentUpdate     = errors.New("appointment was changed by another request, reload and retry")
	ErrValidation           = errors.New("validation failed")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is disabled")
	ErrAuditLogNotFound   = errors.New("audit log not found")
)

// SlotConflictError carries the appointment already holding the requested slot.
// Existing is nil when the holder vanished between the failed write and the reload.
type SlotConflictError struct {
	Existing *entity.Appointment
}

func (e *SlotConflictError) Error() string {
	if e.Existing == nil {
		return ErrSlotConflict.Error()
	}
	return fmt.Sprintf("practitioner already has appointment %s on %s at %s",
		e.Existing.ID, e.Existing.Date.Format(entity.DateLayout), e.Existing.Time)
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

// ValidationError is a rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
