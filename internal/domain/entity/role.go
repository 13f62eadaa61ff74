package entity

// Role represents a user role in the system
type Role struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	RoleName    string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Role ID constants
const (
	RoleIDSecretary = 1
	RoleIDDoctor    = 2
	RoleIDPatient   = 3
)

// RoleNames constants
const (
	RoleSecretary = "secretary"
	RoleDoctor    = "doctor"
	RolePatient   = "patient"
)

// DefaultRoles lists the roles every installation starts with
func DefaultRoles() []Role {
	return []Role{
		{ID: RoleIDSecretary, RoleName: RoleSecretary, Description: "Front-desk staff managing the calendar"},
		{ID: RoleIDDoctor, RoleName: RoleDoctor, Description: "Practitioner receiving patients"},
		{ID: RoleIDPatient, RoleName: RolePatient, Description: "Patient with a medical record"},
	}
}

// RoleName returns the name for a role id, empty when unknown
func RoleName(id int) string {
	for _, r := range DefaultRoles() {
		if r.ID == id {
			return r.RoleName
		}
	}
	return ""
}
