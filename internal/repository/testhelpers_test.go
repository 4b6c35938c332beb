package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vetmatch/identity/internal/database"
	"github.com/vetmatch/identity/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func strPtr(v string) *string { return &v }

func socialRegistration(email, phone string, provider domain.Provider, providerID string) Registration {
	now := time.Now().UTC()
	return Registration{
		User: &domain.User{
			Email:           email,
			Phone:           phone,
			RealName:        strPtr("Kim Vet"),
			Role:            domain.RoleVeterinarian,
			Provider:        provider,
			IsActive:        true,
			TermsAgreedAt:   &now,
			PrivacyAgreedAt: &now,
		},
		Link:         &domain.SocialAccountLink{Provider: provider, ProviderID: providerID},
		Veterinarian: &domain.VeterinarianProfile{Nickname: "dr." + providerID},
	}
}
