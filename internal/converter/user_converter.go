package converter

import (
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO.
// Includes PractitionerProfile and PatientProfile if they are loaded.
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	role := user.Role.RoleName
	if role == "" {
		role = entity.RoleName(user.RoleID)
	}

	return &dto.UserResponse{
		ID:                  user.ID,
		Email:               user.Email,
		FullName:            user.FullName,
		Role:                role,
		PractitionerProfile: PractitionerProfileToResponse(user.PractitionerProfile),
		PatientProfile:      PatientProfileToResponse(user.PatientProfile),
		CreatedAt:           user.CreatedAt,
		UpdatedAt:           user.UpdatedAt,
	}
}
