package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type ScheduleAppointmentRequest struct {
	Date            string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string    `json:"time" validate:"required,clock"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=180"`
	Reason          string    `json:"reason" validate:"required,max=1000"`
	PatientID       uuid.UUID `json:"patient_id" validate:"required"`
	PractitionerID  uuid.UUID `json:"practitioner_id" validate:"required"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type RescheduleAppointmentRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,clock"`
}

// ListAppointmentsQuery is bound from the query string of GET /appointments
type ListAppointmentsQuery struct {
	PractitionerID string `json:"practitioner_id" validate:"omitempty,uuid"`
	PatientID      string `json:"patient_id" validate:"omitempty,uuid"`
	Status         string `json:"status"`
	DateFrom       string `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo         string `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Page           int    `json:"page" validate:"gte=0"`
	PageSize       int    `json:"page_size" validate:"gte=0"`
}

// ConflictCheckQuery is bound from the query string of GET /appointments/conflict-check
type ConflictCheckQuery struct {
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string `json:"time" validate:"required,clock"`
	PractitionerID string `json:"practitioner_id" validate:"required,uuid"`
	ExcludeID      string `json:"exclude_id" validate:"omitempty,uuid"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                 uuid.UUID            `json:"id"`
	Date               string               `json:"date"`
	Time               string               `json:"time"`
	DurationMinutes    int                  `json:"duration_minutes"`
	Reason             string               `json:"reason"`
	Status             string               `json:"status"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	PatientID          uuid.UUID            `json:"patient_id"`
	PractitionerID     uuid.UUID            `json:"practitioner_id"`
	CreatedBy          uuid.UUID            `json:"created_by"`
	ConsultationID     *uuid.UUID           `json:"consultation_id,omitempty"`
	Patient            *PatientSummary      `json:"patient,omitempty"`
	Practitioner       *PractitionerSummary `json:"practitioner,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

type AppointmentListResponse struct {
	Items       []AppointmentResponse `json:"items"`
	TotalPages  int                   `json:"total_pages"`
	CurrentPage int                   `json:"current_page"`
	Total       int64                 `json:"total"`
}

type ConflictCheckResponse struct {
	Conflict    bool                 `json:"conflict"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}
