package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PractitionerProfile represents doctor-specific profile data
type PractitionerProfile struct {
	UserID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	Specialty       string          `gorm:"type:varchar(100);not null;index" json:"specialty"`
	LicenseNumber   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"license_number"`
	ConsultationFee decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"consultation_fee"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (PractitionerProfile) TableName() string {
	return "practitioner_profiles"
}

// DisplayName is the name shown to patients, e.g. in notifications
func (p *PractitionerProfile) DisplayName() string {
	if p.User.FullName == "" {
		return "your practitioner"
	}
	return "Dr. " + p.User.FullName
}
