package converter

import (
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// Patient and practitioner are included when they were preloaded.
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:                 appointment.ID,
		Date:               appointment.Date.Format(entity.DateLayout),
		Time:               appointment.Time,
		DurationMinutes:    appointment.DurationMinutes,
		Reason:             appointment.Reason,
		Status:             string(appointment.Status),
		CancellationReason: appointment.CancellationReason,
		PatientID:          appointment.PatientID,
		PractitionerID:     appointment.PractitionerID,
		CreatedBy:          appointment.CreatedBy,
		ConsultationID:     appointment.ConsultationID,
		Patient:            PatientToSummary(&appointment.Patient),
		Practitioner:       PractitionerToSummary(&appointment.Practitioner),
		CreatedAt:          appointment.CreatedAt,
		UpdatedAt:          appointment.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

// AppointmentSnapshot is the audit representation of an appointment's mutable state
func AppointmentSnapshot(appointment *entity.Appointment) entity.JSON {
	snapshot := entity.JSON{
		"date":             appointment.Date.Format(entity.DateLayout),
		"time":             appointment.Time,
		"duration_minutes": appointment.DurationMinutes,
		"status":           string(appointment.Status),
		"patient_id":       appointment.PatientID.String(),
		"practitioner_id":  appointment.PractitionerID.String(),
	}
	if appointment.CancellationReason != nil {
		snapshot["cancellation_reason"] = *appointment.CancellationReason
	}
	return snapshot
}
