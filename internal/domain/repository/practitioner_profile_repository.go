package repository

import (
	"context"

	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PractitionerProfileRepository interface {
	Create(ctx context.Context, db *gorm.DB, profile *entity.PractitionerProfile) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.PractitionerProfile, error)
}
