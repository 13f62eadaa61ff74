package dto

import (
	"github.com/google/uuid"
)

// PractitionerProfileResponse represents practitioner profile data in responses
type PractitionerProfileResponse struct {
	Specialty       string `json:"specialty"`
	LicenseNumber   string `json:"license_number"`
	ConsultationFee string `json:"consultation_fee"`
}

// PractitionerSummary identifies the practitioner on an appointment
type PractitionerSummary struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	Specialty       string    `json:"specialty"`
	LicenseNumber   string    `json:"license_number"`
	ConsultationFee string    `json:"consultation_fee"`
}
