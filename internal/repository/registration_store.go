package repository

//go:generate mockgen -source=registration_store.go -destination=gomock/registration_store_mock.go -package=gomock

import (
	"context"
	"errors"

	"github.com/vetmatch/identity/internal/domain"

	"gorm.io/gorm"
)

var ErrRegistrationProfileMissing = errors.New("registration requires exactly one role profile")

// Registration is everything written for a new account. Link is nil for the
// NORMAL channel; exactly one of Veterinarian or Hospital is set.
type Registration struct {
	User         *domain.User
	Link         *domain.SocialAccountLink
	Veterinarian *domain.VeterinarianProfile
	Hospital     *domain.HospitalProfile
}

type RegistrationStore interface {
	Register(ctx context.Context, reg Registration) error
}

type GormRegistrationStore struct{ db *gorm.DB }

func NewRegistrationStore(db *gorm.DB) RegistrationStore { return &GormRegistrationStore{db: db} }

// Register inserts the user, its social link and its role profile in one
// transaction. Any unique violation rolls back every row.
func (s *GormRegistrationStore) Register(ctx context.Context, reg Registration) error {
	if reg.User == nil || (reg.Veterinarian == nil) == (reg.Hospital == nil) {
		return ErrRegistrationProfileMissing
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reg.User).Error; err != nil {
			return err
		}
		if reg.Link != nil {
			reg.Link.UserID = reg.User.ID
			if err := tx.Create(reg.Link).Error; err != nil {
				return err
			}
		}
		if reg.Veterinarian != nil {
			reg.Veterinarian.UserID = reg.User.ID
			return tx.Create(reg.Veterinarian).Error
		}
		reg.Hospital.UserID = reg.User.ID
		return tx.Create(reg.Hospital).Error
	})
	if err != nil {
		reg.User.ID = 0
	}
	return record(ctx, "registration", "register", translate(err, ErrUserNotFound))
}
