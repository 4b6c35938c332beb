package database

import (
	"github.com/vetmatch/identity/internal/domain"

	"gorm.io/gorm"
)

func Models() []any {
	return []any{
		&domain.User{},
		&domain.SocialAccountLink{},
		&domain.VeterinarianProfile{},
		&domain.HospitalProfile{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
