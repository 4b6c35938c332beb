package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/observability"
	"github.com/vetmatch/identity/internal/repository"
	"github.com/vetmatch/identity/internal/security"
)

const (
	DefaultRecoveryWindow = 90 * 24 * time.Hour
	maxWithdrawReasonLen  = 500
)

type RecoveryAccountInfo struct {
	MaskedEmail      string          `json:"email"`
	MaskedUsername   string          `json:"username,omitempty"`
	Role             domain.Role     `json:"role"`
	Provider         domain.Provider `json:"provider"`
	DeletedAt        time.Time       `json:"deleted_at"`
	DaysUntilExpiry  int             `json:"days_until_expiry"`
	RequiresPassword bool            `json:"requires_password"`
}

type RecoveryStatus struct {
	HasRecoverableAccount bool                 `json:"has_recoverable_account"`
	AccountInfo           *RecoveryAccountInfo `json:"account_info,omitempty"`
}

type RecoveryResult struct {
	User       *domain.User `json:"user"`
	Tokens     *TokenPair   `json:"tokens"`
	RestoredAt time.Time    `json:"restored_at"`
}

// LifecycleService withdraws accounts and restores them within the recovery
// window. Expiry is computed when asked; nothing sweeps withdrawn rows.
type LifecycleService struct {
	users  repository.UserRepository
	tokens *TokenService
	guard  CredentialGuard
	logger *slog.Logger
	window time.Duration
	now    func() time.Time
}

func NewLifecycleService(users repository.UserRepository, tokens *TokenService, guard CredentialGuard, window time.Duration, logger *slog.Logger) *LifecycleService {
	if window <= 0 {
		window = DefaultRecoveryWindow
	}
	if guard == nil {
		guard = NoopCredentialGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleService{users: users, tokens: tokens, guard: guard, logger: logger, window: window, now: time.Now}
}

func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// Withdraw deactivates the account and returns the withdrawal time. Profile
// rows and links are kept for recovery.
func (s *LifecycleService) Withdraw(ctx context.Context, userID uint, reason string) (time.Time, error) {
	ctx, span := observability.StartSpan(ctx, "account.withdraw")
	at, err := s.withdraw(ctx, userID, reason)
	observability.EndSpan(span, err)
	observability.RecordAccountLifecycleEvent(ctx, "withdraw", lifecycleLabel(err))
	return at, err
}

func (s *LifecycleService) withdraw(ctx context.Context, userID uint, reason string) (time.Time, error) {
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		if len([]rune(r)) > maxWithdrawReasonLen {
			r = string([]rune(r)[:maxWithdrawReasonLen])
		}
		reasonPtr = &r
	}
	at := s.now().UTC()
	if err := s.users.MarkWithdrawn(ctx, userID, at, reasonPtr); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, internalError("mark withdrawn", err)
	}
	return at, nil
}

// CheckRecoverable reports whether phone owns a withdrawn account still
// inside the window. Personal details come back masked.
func (s *LifecycleService) CheckRecoverable(ctx context.Context, phone string) (*RecoveryStatus, error) {
	ctx, span := observability.StartSpan(ctx, "account.check_recoverable")
	status, err := s.checkRecoverable(ctx, phone)
	observability.EndSpan(span, err)
	outcome := lifecycleLabel(err)
	if err == nil && !status.HasRecoverableAccount {
		outcome = "none"
	}
	observability.RecordAccountLifecycleEvent(ctx, "check_recoverable", outcome)
	return status, err
}

func (s *LifecycleService) checkRecoverable(ctx context.Context, phone string) (*RecoveryStatus, error) {
	user, err := s.findWithdrawn(ctx, phone)
	if errors.Is(err, ErrNoRecoverableAccount) {
		return &RecoveryStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	deadline := user.DeletedAt.Add(s.window)
	now := s.now()
	if now.After(deadline) {
		return &RecoveryStatus{}, nil
	}
	info := &RecoveryAccountInfo{
		MaskedEmail:      MaskEmail(user.Email),
		Role:             user.Role,
		Provider:         user.Provider,
		DeletedAt:        *user.DeletedAt,
		DaysUntilExpiry:  daysUntil(now, deadline),
		RequiresPassword: requiresPassword(user),
	}
	if user.Username != nil {
		info.MaskedUsername = MaskUsername(*user.Username)
	}
	return &RecoveryStatus{HasRecoverableAccount: true, AccountInfo: info}, nil
}

// Recover restores the account withdrawn under phone and issues a fresh
// token pair. Password-origin accounts must present their password; wrong
// passwords are throttled per phone and ip.
func (s *LifecycleService) Recover(ctx context.Context, phone, password, ip string) (*RecoveryResult, error) {
	ctx, span := observability.StartSpan(ctx, "account.recover")
	res, err := s.recover(ctx, phone, password, ip)
	observability.EndSpan(span, err)
	observability.RecordAccountLifecycleEvent(ctx, "recover", lifecycleLabel(err))
	return res, err
}

func (s *LifecycleService) recover(ctx context.Context, phone, password, ip string) (*RecoveryResult, error) {
	user, err := s.findWithdrawn(ctx, phone)
	if err != nil {
		return nil, err
	}
	if s.now().After(user.DeletedAt.Add(s.window)) {
		return nil, ErrRecoveryExpired
	}
	if requiresPassword(user) {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		if err := checkGuard(ctx, s.guard, s.logger, GuardScopeRecover, user.Phone, ip); err != nil {
			return nil, err
		}
		if !user.HasPassword() {
			return nil, ErrInvalidCredentials
		}
		ok, err := security.VerifyPassword(*user.PasswordHash, password)
		if err != nil && !errors.Is(err, security.ErrInvalidHash) {
			return nil, internalError("verify password", err)
		}
		if !ok {
			return nil, registerGuardFailure(ctx, s.guard, s.logger, GuardScopeRecover, user.Phone, ip, ErrInvalidCredentials)
		}
		resetGuard(ctx, s.guard, s.logger, GuardScopeRecover, user.Phone, ip)
	}
	if err := s.users.Restore(ctx, user.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrRecoveryConflict
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrNoRecoverableAccount
		default:
			return nil, internalError("restore user", err)
		}
	}
	restoredAt := s.now().UTC()
	restored, err := s.users.FindActiveByID(ctx, user.ID)
	if err != nil {
		return nil, internalError("reload restored user", err)
	}
	tokens, err := s.tokens.Issue(restored)
	if err != nil {
		return nil, err
	}
	return &RecoveryResult{User: restored, Tokens: tokens, RestoredAt: restoredAt}, nil
}

func (s *LifecycleService) findWithdrawn(ctx context.Context, phone string) (*domain.User, error) {
	normalized, ok := NormalizePhone(phone)
	if !ok {
		return nil, invalid("phone", "a mobile phone number is required")
	}
	user, err := s.users.FindWithdrawnByPhone(ctx, normalized)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, ErrNoRecoverableAccount
	case err != nil:
		return nil, internalError("find withdrawn user", err)
	case user.DeletedAt == nil:
		return nil, ErrNoRecoverableAccount
	}
	return user, nil
}

// requiresPassword is true for accounts whose origin credential is a
// password. Social-origin accounts recover on phone possession alone.
func requiresPassword(u *domain.User) bool {
	return u.Provider == domain.ProviderNormal || (!u.Provider.Social() && u.HasPassword())
}

// daysUntil rounds up, so any time left inside the window counts as a day.
func daysUntil(now, deadline time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

func lifecycleLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrGone):
		return "expired"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
