package entity

import (
	"time"

	"github.com/google/uuid"
)

// PatientProfile represents patient-specific profile data
type PatientProfile struct {
	UserID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	RecordNumber string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"record_number"`
	PhoneNumber  string     `gorm:"type:varchar(20);index" json:"phone_number,omitempty"`
	DateOfBirth  *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Gender       string     `gorm:"type:char(1)" json:"gender,omitempty"`
	Address      string     `gorm:"type:text" json:"address,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (PatientProfile) TableName() string {
	return "patient_profiles"
}

// ContactEmail returns the address notifications go to, empty when unknown
func (p *PatientProfile) ContactEmail() string {
	return p.User.Email
}

// Gender constants
const (
	GenderMale   = "M"
	GenderFemale = "F"
)
