package converter

import (
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
)

// PatientProfileToResponse converts a PatientProfile entity to PatientProfileResponse DTO
func PatientProfileToResponse(profile *entity.PatientProfile) *dto.PatientProfileResponse {
	if profile == nil {
		return nil
	}

	response := &dto.PatientProfileResponse{
		UserID:       profile.UserID,
		RecordNumber: profile.RecordNumber,
		PhoneNumber:  profile.PhoneNumber,
		Gender:       profile.Gender,
		Address:      profile.Address,
	}
	if profile.DateOfBirth != nil {
		response.DateOfBirth = profile.DateOfBirth.Format(entity.DateLayout)
	}
	return response
}

// PatientToSummary converts a PatientProfile with its User preloaded to PatientSummary DTO
func PatientToSummary(profile *entity.PatientProfile) *dto.PatientSummary {
	if profile == nil || profile.UserID == uuid.Nil {
		return nil
	}

	return &dto.PatientSummary{
		ID:           profile.UserID,
		FullName:     profile.User.FullName,
		Email:        profile.User.Email,
		RecordNumber: profile.RecordNumber,
		PhoneNumber:  profile.PhoneNumber,
	}
}
