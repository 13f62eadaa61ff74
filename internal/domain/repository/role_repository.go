package repository

import (
	"context"

	"medical-office-api/internal/domain/entity"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindByName(ctx context.Context, db *gorm.DB, name string) (*entity.Role, error)
	Upsert(ctx context.Context, db *gorm.DB, roles []entity.Role) error
}
