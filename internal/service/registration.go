package service

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/repository"
)

var (
	usernameRe       = regexp.MustCompile(`^[a-zA-Z0-9_]{4,20}$`)
	businessNumberRe = regexp.MustCompile(`^[0-9]{10}$`)
)

// RegistrationForm is the role step shared by social completion and local
// sign-up.
type RegistrationForm struct {
	Role      domain.Role
	Phone     string
	RealName  string
	BirthDate *time.Time

	Nickname        string
	LicenseImageURL string
	Experience      string
	University      string
	GraduationYear  *int

	HospitalName    string
	BusinessNumber  string
	HospitalAddress string
	HospitalPhone   string
	Website         string

	AgreeTerms     bool
	AgreePrivacy   bool
	AgreeMarketing bool
}

type LocalRegistrationForm struct {
	RegistrationForm
	Username string
	Email    string
	Password string
}

// validate checks role-specific required fields and returns the normalised
// phone. Graduation years are bounded relative to now.
func (f *RegistrationForm) validate(now time.Time) (string, error) {
	if !f.Role.Valid() {
		return "", invalid("role", "must be VETERINARIAN, HOSPITAL or VETERINARY_STUDENT")
	}
	if !f.AgreeTerms {
		return "", invalid("agree_terms", "terms of service consent is required")
	}
	if !f.AgreePrivacy {
		return "", invalid("agree_privacy", "privacy policy consent is required")
	}
	phone, ok := NormalizePhone(f.Phone)
	if !ok {
		return "", invalid("phone", "a mobile phone number is required")
	}
	switch f.Role {
	case domain.RoleVeterinarian:
		if strings.TrimSpace(f.Nickname) == "" {
			return "", invalid("nickname", "required for veterinarians")
		}
		if strings.TrimSpace(f.LicenseImageURL) == "" {
			return "", invalid("license_image_url", "a license image is required for veterinarians")
		}
	case domain.RoleVeterinaryStudent:
		if strings.TrimSpace(f.Nickname) == "" {
			return "", invalid("nickname", "required for students")
		}
	case domain.RoleHospital:
		if strings.TrimSpace(f.HospitalName) == "" {
			return "", invalid("hospital_name", "required for hospitals")
		}
		if !businessNumberRe.MatchString(strings.ReplaceAll(f.BusinessNumber, "-", "")) {
			return "", invalid("business_number", "must be a 10 digit business registration number")
		}
	}
	if f.GraduationYear != nil && (*f.GraduationYear < 1950 || *f.GraduationYear > now.Year()+10) {
		return "", invalid("graduation_year", "out of range")
	}
	return phone, nil
}

func (f *LocalRegistrationForm) validate(now time.Time) (phone, email string, err error) {
	if !usernameRe.MatchString(f.Username) {
		return "", "", invalid("username", "4-20 letters, digits or underscores")
	}
	email, ok := NormalizeEmail(f.Email)
	if !ok {
		return "", "", invalid("email", "must be a valid email address")
	}
	if err := validatePassword(f.Password); err != nil {
		return "", "", err
	}
	phone, err = f.RegistrationForm.validate(now)
	return phone, email, err
}

func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 128 {
		return invalid("password", "must be 8 to 128 characters")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return invalid("password", "must contain letters and digits")
	}
	return nil
}

// buildRegistration assembles the rows for a new account. user carries the
// identity columns already filled by the caller.
func buildRegistration(user *domain.User, f *RegistrationForm, now time.Time) repository.Registration {
	user.Role = f.Role
	user.IsActive = true
	if f.RealName != "" {
		name := strings.TrimSpace(f.RealName)
		user.RealName = &name
	}
	if f.BirthDate != nil {
		user.BirthDate = f.BirthDate
	}
	user.TermsAgreedAt = &now
	user.PrivacyAgreedAt = &now
	if f.AgreeMarketing {
		user.MarketingAgreedAt = &now
	}

	reg := repository.Registration{User: user}
	if f.Role.UsesVeterinarianProfile() {
		vet := &domain.VeterinarianProfile{
			Nickname:        strings.TrimSpace(f.Nickname),
			LicenseImageURL: strings.TrimSpace(f.LicenseImageURL),
			Experience:      strings.TrimSpace(f.Experience),
			University:      strings.TrimSpace(f.University),
			GraduationYear:  f.GraduationYear,
		}
		if f.Role == domain.RoleVeterinaryStudent && vet.Experience == "" {
			vet.Experience = domain.StudentExperience(emailDomain(user.Email))
		}
		reg.Veterinarian = vet
		return reg
	}
	hospitalPhone := user.Phone
	if p, ok := NormalizePhone(f.HospitalPhone); ok {
		hospitalPhone = p
	} else if strings.TrimSpace(f.HospitalPhone) != "" {
		hospitalPhone = strings.TrimSpace(f.HospitalPhone)
	}
	reg.Hospital = &domain.HospitalProfile{
		HospitalName:   strings.TrimSpace(f.HospitalName),
		BusinessNumber: strings.ReplaceAll(f.BusinessNumber, "-", ""),
		Address:        strings.TrimSpace(f.HospitalAddress),
		Phone:          hospitalPhone,
		Website:        strings.TrimSpace(f.Website),
	}
	return reg
}
