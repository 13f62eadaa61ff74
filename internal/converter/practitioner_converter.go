package converter

import (
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
)

// PractitionerProfileToResponse converts a PractitionerProfile entity to PractitionerProfileResponse DTO
func PractitionerProfileToResponse(profile *entity.PractitionerProfile) *dto.PractitionerProfileResponse {
	if profile == nil {
		return nil
	}

	return &dto.PractitionerProfileResponse{
		Specialty:       profile.Specialty,
		LicenseNumber:   profile.LicenseNumber,
		ConsultationFee: profile.ConsultationFee.StringFixed(2),
	}
}

// PractitionerToSummary converts a PractitionerProfile with its User preloaded to PractitionerSummary DTO
func PractitionerToSummary(profile *entity.PractitionerProfile) *dto.PractitionerSummary {
	if profile == nil || profile.UserID == uuid.Nil {
		return nil
	}

	return &dto.PractitionerSummary{
		ID:              profile.UserID,
		FullName:        profile.User.FullName,
		Specialty:       profile.Specialty,
		LicenseNumber:   profile.LicenseNumber,
		ConsultationFee: profile.ConsultationFee.StringFixed(2),
	}
}
