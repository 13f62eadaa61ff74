package dto

import (
	"github.com/google/uuid"
)

// PatientProfileResponse represents patient profile data in responses
type PatientProfileResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	RecordNumber string    `json:"record_number"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	DateOfBirth  string    `json:"date_of_birth,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Address      string    `json:"address,omitempty"`
}

// PatientSummary identifies the patient on an appointment
type PatientSummary struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email,omitempty"`
	RecordNumber string    `json:"record_number"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
}
