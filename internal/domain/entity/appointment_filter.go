package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter is a domain-level filter for listing appointments.
// Zero values mean "no constraint"; all set fields are combined with AND.
type AppointmentFilter struct {
	PractitionerID *uuid.UUID
	PatientID      *uuid.UUID
	Status         AppointmentStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int
	PageSize       int
}

// Offset returns the row offset for the current page
func (f AppointmentFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
