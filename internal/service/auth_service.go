package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/repository"
	"github.com/vetmatch/identity/internal/security"
)

type LoginResult struct {
	User   *domain.User `json:"user"`
	Tokens *TokenPair   `json:"tokens"`
}

// PasswordLoginResult carries the single access token issued on the
// password path.
type PasswordLoginResult struct {
	User  *domain.User `json:"user"`
	Token *AccessToken `json:"token"`
}

type CallbackOutcome string

const (
	CallbackLogin          CallbackOutcome = "login"
	CallbackSignupRequired CallbackOutcome = "signup_required"
)

// CallbackResult is the outcome of an OAuth callback. Collisions are returned
// as *ExistingAccountError instead.
type CallbackResult struct {
	Outcome     CallbackOutcome
	User        *domain.User
	Tokens      *TokenPair
	SignupToken string
	Profile     *SocialProfile
}

type AuthService struct {
	localEnabled bool
	oauthSvc     *OAuthService
	identitySvc  *IdentityService
	tokenSvc     *TokenService
	userRepo     repository.UserRepository
	guard        CredentialGuard
	logger       *slog.Logger
	now          func() time.Time
}

func NewAuthService(
	localEnabled bool,
	oauthSvc *OAuthService,
	identitySvc *IdentityService,
	tokenSvc *TokenService,
	userRepo repository.UserRepository,
	guard CredentialGuard,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if guard == nil {
		guard = NoopCredentialGuard{}
	}
	return &AuthService{
		localEnabled: localEnabled,
		oauthSvc:     oauthSvc,
		identitySvc:  identitySvc,
		tokenSvc:     tokenSvc,
		userRepo:     userRepo,
		guard:        guard,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *AuthService) SocialLoginURL(provider domain.Provider, state string) (string, error) {
	return s.oauthSvc.LoginURL(provider, state)
}

// HandleSocialCallback authenticates code with provider and reconciles the
// identity. A returning user gets a token pair; an unknown identity gets a
// signup token sealing its profile.
func (s *AuthService) HandleSocialCallback(ctx context.Context, provider domain.Provider, code string) (*CallbackResult, error) {
	profile, err := s.oauthSvc.Authenticate(ctx, provider, code)
	if err != nil {
		return nil, err
	}
	res, err := s.identitySvc.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeNewUser {
		token, err := s.tokenSvc.IssueSignup(profile)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{Outcome: CallbackSignupRequired, SignupToken: token, Profile: profile}, nil
	}
	tokens, err := s.tokenSvc.Issue(res.User)
	if err != nil {
		return nil, err
	}
	s.touchLastLogin(ctx, res.User)
	return &CallbackResult{Outcome: CallbackLogin, User: res.User, Tokens: tokens, Profile: profile}, nil
}

// PendingSignup opens a signup token so the registration page can prefill
// the provider profile.
func (s *AuthService) PendingSignup(signupToken string) (*SocialProfile, error) {
	return s.tokenSvc.ParseSignup(signupToken)
}

func (s *AuthService) CompleteSocialRegistration(ctx context.Context, signupToken string, form RegistrationForm) (*LoginResult, error) {
	profile, err := s.tokenSvc.ParseSignup(signupToken)
	if err != nil {
		return nil, err
	}
	user, err := s.identitySvc.CompleteRegistration(ctx, profile, form)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *AuthService) RegisterLocal(ctx context.Context, form LocalRegistrationForm) (*LoginResult, error) {
	if !s.localEnabled {
		return nil, ErrLocalAuthDisabled
	}
	user, err := s.identitySvc.RegisterLocal(ctx, form)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// LoginWithPassword accepts an email or a username. Unknown accounts and
// wrong passwords fail with the same error; repeated failures against one
// account or from one ip are throttled. Username and email share the
// account's budget.
func (s *AuthService) LoginWithPassword(ctx context.Context, login, password, ip string) (*PasswordLoginResult, error) {
	if !s.localEnabled {
		return nil, ErrLocalAuthDisabled
	}
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.findLoginAccount(ctx, login)
	if err != nil {
		return nil, err
	}
	identity := loginGuardIdentity(login, user)
	if err := checkGuard(ctx, s.guard, s.logger, GuardScopeLogin, identity, ip); err != nil {
		return nil, err
	}
	if err := verifyPassword(user, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, registerGuardFailure(ctx, s.guard, s.logger, GuardScopeLogin, identity, ip, err)
		}
		return nil, err
	}
	resetGuard(ctx, s.guard, s.logger, GuardScopeLogin, identity, ip)
	s.upgradePasswordHash(ctx, user, password)

	token, err := s.tokenSvc.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	s.touchLastLogin(ctx, user)
	return &PasswordLoginResult{User: user, Token: token}, nil
}

// findLoginAccount returns nil without error when no active account matches.
func (s *AuthService) findLoginAccount(ctx context.Context, login string) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.userRepo.FindActiveByEmail(ctx, login)
	} else {
		user, err = s.userRepo.FindActiveByUsername(ctx, login)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError("find user for login", err)
	}
	return user, nil
}

// loginGuardIdentity keys known accounts by id so every login name for the
// account draws on one failure budget.
func loginGuardIdentity(login string, user *domain.User) string {
	if user == nil {
		return login
	}
	return "user:" + strconv.FormatUint(uint64(user.ID), 10)
}

func verifyPassword(user *domain.User, password string) error {
	if user == nil || !user.HasPassword() {
		return ErrInvalidCredentials
	}
	ok, err := security.VerifyPassword(*user.PasswordHash, password)
	if err != nil && !errors.Is(err, security.ErrInvalidHash) {
		return internalError("verify password", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// Refresh trades a refresh token for a new pair. The owner must still be
// active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	userID, err := s.tokenSvc.RefreshSubject(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindActiveByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, internalError("load refresh subject", err)
	}
	tokens, err := s.tokenSvc.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

func (s *AuthService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	return s.identitySvc.UsernameAvailable(ctx, strings.TrimSpace(username))
}

func (s *AuthService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	normalized, ok := NormalizeEmail(email)
	if !ok {
		return false, invalid("email", "must be a valid email address")
	}
	return s.identitySvc.EmailAvailable(ctx, normalized)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*LoginResult, error) {
	tokens, err := s.tokenSvc.Issue(user)
	if err != nil {
		return nil, err
	}
	s.touchLastLogin(ctx, user)
	return &LoginResult{User: user, Tokens: tokens}, nil
}

func (s *AuthService) touchLastLogin(ctx context.Context, user *domain.User) {
	at := s.now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, at); err != nil {
		s.logger.WarnContext(ctx, "touch last login failed", "user_id", user.ID, "error", err)
		return
	}
	user.LastLoginAt = &at
}

// The guard fails open: a broken backend logs and lets the attempt through.
func checkGuard(ctx context.Context, guard CredentialGuard, logger *slog.Logger, scope GuardScope, identity, ip string) error {
	wait, err := guard.Check(ctx, scope, identity, ip)
	if err != nil {
		logger.WarnContext(ctx, "credential guard check failed", "scope", scope, "error", err)
		return nil
	}
	if wait > 0 {
		return &ThrottledError{RetryAfter: wait}
	}
	return nil
}

func registerGuardFailure(ctx context.Context, guard CredentialGuard, logger *slog.Logger, scope GuardScope, identity, ip string, cause error) error {
	if _, err := guard.RegisterFailure(ctx, scope, identity, ip); err != nil {
		logger.WarnContext(ctx, "credential guard update failed", "scope", scope, "error", err)
	}
	return cause
}

func resetGuard(ctx context.Context, guard CredentialGuard, logger *slog.Logger, scope GuardScope, identity, ip string) {
	if err := guard.Reset(ctx, scope, identity, ip); err != nil {
		logger.WarnContext(ctx, "credential guard reset failed", "scope", scope, "error", err)
	}
}

func (s *AuthService) upgradePasswordHash(ctx context.Context, user *domain.User, password string) {
	if !security.NeedsRehash(*user.PasswordHash) {
		return
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		s.logger.WarnContext(ctx, "rehash password failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.WarnContext(ctx, "store rehashed password failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = &hash
}
