package repository

import (
	"context"
	"errors"
	"time"

	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrActiveSlotTaken is returned by writes that would give a practitioner two
// non-cancelled appointments on the same date and time.
var ErrActiveSlotTaken = errors.New("slot already held by an active appointment")

// ErrPatientMissing and ErrPractitionerMissing are returned when a write references
// a profile that no longer exists.
var (
	ErrPatientMissing      = errors.New("referenced patient profile does not exist")
	ErrPractitionerMissing = errors.New("referenced practitioner profile does not exist")
)

type AppointmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	// FindActiveBySlot returns the non-cancelled appointment holding the slot, ignoring excludeID when set.
	FindActiveBySlot(ctx context.Context, db *gorm.DB, date time.Time, clock string, practitionerID uuid.UUID, excludeID *uuid.UUID) (*entity.Appointment, error)
	FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error)
	FindByStatusOnDate(ctx context.Context, db *gorm.DB, date time.Time, status entity.AppointmentStatus) ([]entity.Appointment, error)
	// UpdateIfStatus writes the mutable fields only while the stored status still equals expected.
	// Returns affected rows: 0 means another writer changed the appointment first.
	UpdateIfStatus(ctx context.Context, db *gorm.DB, appointment *entity.Appointment, expected entity.AppointmentStatus) (int64, error)
	DeleteIfStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, expected entity.AppointmentStatus) (int64, error)
}
