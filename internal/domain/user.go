package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleVeterinarian      Role = "VETERINARIAN"
	RoleHospital          Role = "HOSPITAL"
	RoleVeterinaryStudent Role = "VETERINARY_STUDENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleVeterinarian, RoleHospital, RoleVeterinaryStudent:
		return true
	default:
		return false
	}
}

// UsesVeterinarianProfile reports whether the role stores its profile in
// veterinarian_profiles. Students share the veterinarian table.
func (r Role) UsesVeterinarianProfile() bool {
	return r == RoleVeterinarian || r == RoleVeterinaryStudent
}

// Provider is the channel an account was created through.
type Provider string

const (
	ProviderNormal Provider = "NORMAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderKakao  Provider = "KAKAO"
	ProviderNaver  Provider = "NAVER"
)

func (p Provider) Social() bool {
	switch p {
	case ProviderGoogle, ProviderKakao, ProviderNaver:
		return true
	default:
		return false
	}
}

// ParseProvider accepts the lower-case route form ("google") as well as the
// stored form ("GOOGLE").
func ParseProvider(v string) (Provider, bool) {
	switch Provider(strings.ToUpper(strings.TrimSpace(v))) {
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderKakao:
		return ProviderKakao, true
	case ProviderNaver:
		return ProviderNaver, true
	case ProviderNormal:
		return ProviderNormal, true
	default:
		return "", false
	}
}

// User is the account root. Email, phone and username are unique only among
// rows with a NULL deleted_at, so a withdrawn account never blocks a new one.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Username          *string    `gorm:"size:64;uniqueIndex:idx_users_username_active,where:deleted_at IS NULL" json:"username,omitempty"`
	Email             string     `gorm:"size:255;not null;uniqueIndex:idx_users_email_active,where:deleted_at IS NULL" json:"email"`
	Phone             string     `gorm:"size:32;not null;index:idx_users_phone;uniqueIndex:idx_users_phone_active,where:deleted_at IS NULL" json:"phone"`
	RealName          *string    `gorm:"size:100" json:"real_name,omitempty"`
	BirthDate         *time.Time `gorm:"type:date" json:"birth_date,omitempty"`
	Role              Role       `gorm:"size:32;not null;index" json:"role"`
	PasswordHash      *string    `gorm:"size:1024" json:"-"`
	Provider          Provider   `gorm:"size:16;not null;default:NORMAL" json:"provider"`
	ProfileImage      string     `gorm:"size:1024" json:"profile_image,omitempty"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	DeletedAt         *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	WithdrawReason    *string    `gorm:"size:500" json:"-"`
	TermsAgreedAt     *time.Time `json:"terms_agreed_at,omitempty"`
	PrivacyAgreedAt   *time.Time `json:"privacy_agreed_at,omitempty"`
	MarketingAgreedAt *time.Time `json:"marketing_agreed_at,omitempty"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Withdrawn reports whether the account is outside the active set. Either
// flag is enough; a row half-way through withdraw or restore never signs in.
func (u *User) Withdrawn() bool {
	return !u.IsActive || u.DeletedAt != nil
}
