package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medical-office-api/internal/domain/entity"
	domainRepo "medical-office-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func withParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("Patient.User").Preload("Practitioner.User")
}

// translateWriteError maps constraint violations on appointments to domain errors
func translateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err, ActiveSlotConstraint):
		return fmt.Errorf("%w: %v", domainRepo.ErrActiveSlotTaken, err)
	case IsForeignKeyViolation(err, PatientReferenceConstraint):
		return fmt.Errorf("%w: %v", domainRepo.ErrPatientMissing, err)
	case IsForeignKeyViolation(err, PractitionerReferenceConstraint):
		return fmt.Errorf("%w: %v", domainRepo.ErrPractitionerMissing, err)
	}
	return err
}

func (r *appointmentRepository) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	err := db.WithContext(ctx).Omit("Patient", "Practitioner", "Creator").Create(appointment).Error
	return translateWriteError(err)
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := withParticipants(db.WithContext(ctx)).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindActiveBySlot(ctx context.Context, db *gorm.DB, date time.Time, clock string, practitionerID uuid.UUID, excludeID *uuid.UUID) (*entity.Appointment, error) {
	query := withParticipants(db.WithContext(ctx)).
		Where("appointment_date = ? AND appointment_time = ? AND practitioner_id = ? AND status <> ?",
			date, clock, practitionerID, entity.AppointmentStatusCancelled)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var appointment entity.Appointment
	if err := query.First(&appointment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	query := db.WithContext(ctx).Model(&entity.Appointment{})

	if filter.PractitionerID != nil {
		query = query.Where("practitioner_id = ?", *filter.PractitionerID)
	}
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("appointment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("appointment_date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var appointments []entity.Appointment
	err := withParticipants(query.Session(&gorm.Session{})).
		Order("appointment_date ASC").
		Order("appointment_time ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

func (r *appointmentRepository) FindByStatusOnDate(ctx context.Context, db *gorm.DB, date time.Time, status entity.AppointmentStatus) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := withParticipants(db.WithContext(ctx)).
		Where("appointment_date = ? AND status = ?", date, status).
		Order("appointment_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateIfStatus(ctx context.Context, db *gorm.DB, appointment *entity.Appointment, expected entity.AppointmentStatus) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", appointment.ID, expected).
		Updates(map[string]interface{}{
			"appointment_date":    appointment.Date,
			"appointment_time":    appointment.Time,
			"status":              appointment.Status,
			"cancellation_reason": appointment.CancellationReason,
			"updated_at":          time.Now(),
		})
	return result.RowsAffected, translateWriteError(result.Error)
}

func (r *appointmentRepository) DeleteIfStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, expected entity.AppointmentStatus) (int64, error) {
	result := db.WithContext(ctx).
		Where("id = ? AND status = ?", id, expected).
		Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}
