package repository

import (
	"context"
	"errors"

	"medical-office-api/internal/domain/entity"
	domainRepo "medical-office-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type practitionerProfileRepository struct{}

func NewPractitionerProfileRepository() domainRepo.PractitionerProfileRepository {
	return &practitionerProfileRepository{}
}

func (r *practitionerProfileRepository) Create(ctx context.Context, db *gorm.DB, profile *entity.PractitionerProfile) error {
	return db.WithContext(ctx).Omit("User").Create(profile).Error
}

func (r *practitionerProfileRepository) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.PractitionerProfile, error) {
	var profile entity.PractitionerProfile
	err := db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}
