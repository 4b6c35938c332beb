package domain

import (
	"strings"
	"time"
)

// legacyStudentPrefix marks student rows written before the role column
// carried VETERINARY_STUDENT.
const legacyStudentPrefix = "Student at "

type VeterinarianProfile struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Nickname        string     `gorm:"size:50;not null" json:"nickname"`
	LicenseImageURL string     `gorm:"size:1024" json:"license_image_url,omitempty"`
	Experience      string     `gorm:"size:255" json:"experience,omitempty"`
	University      string     `gorm:"size:120" json:"university,omitempty"`
	GraduationYear  *int       `json:"graduation_year,omitempty"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type HospitalProfile struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	HospitalName   string     `gorm:"size:120;not null" json:"hospital_name"`
	BusinessNumber string     `gorm:"size:32;not null" json:"business_number"`
	Address        string     `gorm:"size:255" json:"address,omitempty"`
	Phone          string     `gorm:"size:32" json:"phone,omitempty"`
	Website        string     `gorm:"size:255" json:"website,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StudentExperience is the display value seeded for student profiles.
func StudentExperience(emailDomain string) string {
	return legacyStudentPrefix + emailDomain
}

// EffectiveRole returns the role a user acts as. Older student accounts were
// stored as VETERINARIAN with a "Student at <domain>" experience value and
// still read as students.
func EffectiveRole(u *User, vet *VeterinarianProfile) Role {
	if u == nil {
		return ""
	}
	if u.Role == RoleVeterinarian && vet != nil && strings.HasPrefix(vet.Experience, legacyStudentPrefix) {
		return RoleVeterinaryStudent
	}
	return u.Role
}

// ProfileName is the display name shown across the platform.
func ProfileName(u *User, vet *VeterinarianProfile, hospital *HospitalProfile) string {
	if u == nil {
		return ""
	}
	switch {
	case u.Role.UsesVeterinarianProfile() && vet != nil && vet.Nickname != "":
		return vet.Nickname
	case u.Role == RoleHospital && hospital != nil && hospital.HospitalName != "":
		return hospital.HospitalName
	case u.RealName != nil && *u.RealName != "":
		return *u.RealName
	case u.Username != nil:
		return *u.Username
	default:
		return ""
	}
}
