package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// IsValid reports whether s is one of the known statuses
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

const (
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 180
	DefaultDurationMinutes = 30

	DefaultCancellationReason = "unspecified"

	DateLayout = "2006-01-02"
)

var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlreadyCancelled    = errors.New("appointment is already cancelled")
	ErrOperationNotAllowed = errors.New("operation not allowed")
	ErrInvalidClock        = errors.New("time must use the 24-hour HH:MM format")
	ErrInvalidDate         = errors.New("date must use the YYYY-MM-DD format")
)

// TransitionError names the action that was refused and the status that refused it.
type TransitionError struct {
	Action string
	From   AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an appointment with status %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Appointment is a patient visit booked on a practitioner's calendar
type Appointment struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Date               time.Time         `gorm:"column:appointment_date;type:date;not null" json:"date"`
	Time               string            `gorm:"column:appointment_time;type:varchar(5);not null" json:"time"`
	DurationMinutes    int               `gorm:"not null;default:30" json:"duration_minutes"`
	Reason             string            `gorm:"type:text;not null" json:"reason"`
	Status             AppointmentStatus `gorm:"type:appointment_status;not null;default:'SCHEDULED';index" json:"status"`
	CancellationReason *string           `gorm:"type:text" json:"cancellation_reason,omitempty"`
	PatientID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	PractitionerID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"practitioner_id"`
	CreatedBy          uuid.UUID         `gorm:"type:uuid;not null" json:"created_by"`
	ConsultationID     *uuid.UUID        `gorm:"type:uuid" json:"consultation_id,omitempty"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient      PatientProfile      `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Practitioner PractitionerProfile `gorm:"foreignKey:PractitionerID" json:"practitioner,omitempty"`
	Creator      User                `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsActive reports whether the appointment still holds its slot
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

func (a *Appointment) IsScheduled() bool {
	return a.Status == AppointmentStatusScheduled
}

func (a *Appointment) IsCompleted() bool {
	return a.Status == AppointmentStatusCompleted
}

func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// Confirm marks the visit as having taken place
func (a *Appointment) Confirm() error {
	if !a.IsScheduled() {
		return &TransitionError{Action: "confirm", From: a.Status}
	}
	a.Status = AppointmentStatusCompleted
	return nil
}

// Cancel releases the slot. An empty reason is stored as DefaultCancellationReason.
func (a *Appointment) Cancel(reason string) error {
	switch a.Status {
	case AppointmentStatusCancelled:
		return ErrAlreadyCancelled
	case AppointmentStatusScheduled:
	default:
		return &TransitionError{Action: "cancel", From: a.Status}
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}
	a.Status = AppointmentStatusCancelled
	a.CancellationReason = &reason
	return nil
}

// Reschedule moves the appointment to a new slot and puts it back to SCHEDULED,
// which also revives a cancelled appointment. Completed appointments cannot move.
func (a *Appointment) Reschedule(date time.Time, clock string) error {
	if a.IsCompleted() {
		return &TransitionError{Action: "reschedule", From: a.Status}
	}
	a.Date = date
	a.Time = clock
	a.Status = AppointmentStatusScheduled
	return nil
}

// CheckDeletable refuses hard deletion of completed appointments.
func (a *Appointment) CheckDeletable() error {
	if a.IsCompleted() {
		return fmt.Errorf("%w: a %s appointment cannot be deleted, cancel it instead", ErrOperationNotAllowed, a.Status)
	}
	return nil
}

// SameSlot reports whether the appointment sits on the given slot
func (a *Appointment) SameSlot(date time.Time, clock string, practitionerID uuid.UUID) bool {
	return a.PractitionerID == practitionerID && a.Time == clock && a.Date.Equal(date)
}

var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)

// NormalizeClock accepts H:MM or HH:MM and returns the zero-padded HH:MM form.
func NormalizeClock(value string) (string, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return hour + ":" + m[2], nil
}

// ParseDate parses a YYYY-MM-DD calendar date at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return d, nil
}
