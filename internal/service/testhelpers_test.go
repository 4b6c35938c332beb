package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vetmatch/identity/internal/database"
	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/repository"
	"github.com/vetmatch/identity/internal/security"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testAccessSecret  = "access-secret-access-secret-0123"
	testRefreshSecret = "refresh-secret-refresh-secret-01"
)

type serviceFixture struct {
	db            *gorm.DB
	now           time.Time
	users         repository.UserRepository
	links         repository.SocialAccountRepository
	profiles      repository.ProfileRepository
	registrations repository.RegistrationStore
	jwt           *security.JWTManager
	tokens        *TokenService
	guard         *InMemoryCredentialGuard
	identity      *IdentityService
	lifecycle     *LifecycleService
	logger        *slog.Logger
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	fx := &serviceFixture{
		db:     newServiceDBForTest(t),
		now:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	clock := func() time.Time { return fx.now }
	fx.users = repository.NewUserRepository(fx.db)
	fx.links = repository.NewSocialAccountRepository(fx.db)
	fx.profiles = repository.NewProfileRepository(fx.db)
	fx.registrations = repository.NewRegistrationStore(fx.db)
	fx.jwt = security.NewJWTManager("vetmatch-identity", "vetmatch-api", testAccessSecret, testRefreshSecret).WithClock(clock)
	fx.tokens = NewTokenService(fx.jwt, 7*24*time.Hour, 30*24*time.Hour, 30*time.Minute)
	fx.guard = NewInMemoryCredentialGuard(GuardPolicy{FreeAttempts: 2, BaseDelay: time.Second, Multiplier: 2, MaxDelay: time.Minute, ResetWindow: 10 * time.Minute})
	fx.guard.now = clock
	fx.identity = NewIdentityService(fx.users, fx.links, fx.registrations, fx.logger).WithClock(clock)
	fx.lifecycle = NewLifecycleService(fx.users, fx.tokens, fx.guard, DefaultRecoveryWindow, fx.logger).WithClock(clock)
	return fx
}

func (fx *serviceFixture) authService(providers OAuthProviders) *AuthService {
	oauthSvc := NewOAuthService(providers, 5*time.Second)
	auth := NewAuthService(true, oauthSvc, fx.identity, fx.tokens, fx.users, fx.guard, fx.logger)
	auth.now = func() time.Time { return fx.now }
	return auth
}

func (fx *serviceFixture) advance(d time.Duration) { fx.now = fx.now.Add(d) }

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
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

func vetForm(phone string) RegistrationForm {
	return RegistrationForm{
		Role:            domain.RoleVeterinarian,
		Phone:           phone,
		Nickname:        "dr.kim",
		LicenseImageURL: "https://cdn.vetmatch.example/license/1.png",
		AgreeTerms:      true,
		AgreePrivacy:    true,
	}
}

func localForm(username, email, phone, password string) LocalRegistrationForm {
	return LocalRegistrationForm{
		RegistrationForm: vetForm(phone),
		Username:         username,
		Email:            email,
		Password:         password,
	}
}

func googleProfile(id, email string) *SocialProfile {
	return &SocialProfile{Provider: domain.ProviderGoogle, ProviderID: id, Email: email, Name: "Kim Vet"}
}

func (fx *serviceFixture) seedLocalUser(t *testing.T, username, email, phone, password string) *domain.User {
	t.Helper()
	u, err := fx.identity.RegisterLocal(context.Background(), localForm(username, email, phone, password))
	if err != nil {
		t.Fatalf("seed local user: %v", err)
	}
	return u
}

func (fx *serviceFixture) seedSocialUser(t *testing.T, profile *SocialProfile, phone string) *domain.User {
	t.Helper()
	u, err := fx.identity.CompleteRegistration(context.Background(), profile, vetForm(phone))
	if err != nil {
		t.Fatalf("seed social user: %v", err)
	}
	return u
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
