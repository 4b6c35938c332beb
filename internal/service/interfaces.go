package service

import (
	"context"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/security"
)

type AuthServiceInterface interface {
	SocialLoginURL(provider domain.Provider, state string) (string, error)
	HandleSocialCallback(ctx context.Context, provider domain.Provider, code string) (*CallbackResult, error)
	PendingSignup(signupToken string) (*SocialProfile, error)
	CompleteSocialRegistration(ctx context.Context, signupToken string, form RegistrationForm) (*LoginResult, error)
	RegisterLocal(ctx context.Context, form LocalRegistrationForm) (*LoginResult, error)
	LoginWithPassword(ctx context.Context, login, password, ip string) (*PasswordLoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	EmailAvailable(ctx context.Context, email string) (bool, error)
}

type LifecycleServiceInterface interface {
	Withdraw(ctx context.Context, userID uint, reason string) (time.Time, error)
	CheckRecoverable(ctx context.Context, phone string) (*RecoveryStatus, error)
	Recover(ctx context.Context, phone, password, ip string) (*RecoveryResult, error)
}

type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID uint) (*UserView, error)
}

// TokenVerifier is what the auth middleware needs from the token issuer.
type TokenVerifier interface {
	Verify(token string) (*security.Claims, error)
}

var (
	_ AuthServiceInterface      = (*AuthService)(nil)
	_ LifecycleServiceInterface = (*LifecycleService)(nil)
	_ UserServiceInterface      = (*UserService)(nil)
	_ TokenVerifier             = (*TokenService)(nil)
)
