package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/observability"
	"github.com/vetmatch/identity/internal/repository"
	"github.com/vetmatch/identity/internal/security"

	"go.opentelemetry.io/otel/attribute"
)

type ResolveOutcome string

const (
	OutcomeReturning ResolveOutcome = "returning"
	OutcomeNewUser   ResolveOutcome = "new_user"
)

// Resolution is the reconciliation verdict for one provider profile. User is
// set only for OutcomeReturning.
type Resolution struct {
	Outcome ResolveOutcome
	User    *domain.User
	Profile *SocialProfile
}

// IdentityService decides whether a provider identity is a returning login, a
// new account, or a collision with an account reached through another
// channel. It never links identities on its own.
type IdentityService struct {
	users         repository.UserRepository
	links         repository.SocialAccountRepository
	registrations repository.RegistrationStore
	logger        *slog.Logger
	now           func() time.Time
}

func NewIdentityService(
	users repository.UserRepository,
	links repository.SocialAccountRepository,
	registrations repository.RegistrationStore,
	logger *slog.Logger,
) *IdentityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityService{users: users, links: links, registrations: registrations, logger: logger, now: time.Now}
}

func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

func (s *IdentityService) Resolve(ctx context.Context, profile *SocialProfile) (*Resolution, error) {
	ctx, span := observability.StartSpan(ctx, "identity.resolve", attribute.String("provider", string(profile.Provider)))
	res, err := s.resolve(ctx, profile)
	observability.EndSpan(span, err)
	observability.RecordReconcileOutcome(ctx, strings.ToLower(string(profile.Provider)), resolveLabel(res, err))
	return res, err
}

func (s *IdentityService) resolve(ctx context.Context, profile *SocialProfile) (*Resolution, error) {
	link, err := s.links.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	switch {
	case err == nil:
		owner, err := s.users.FindByID(ctx, link.UserID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, internalError("load link owner", err)
		}
		if owner.Withdrawn() {
			return nil, ErrAccountWithdrawn
		}
		s.storeProviderTokens(ctx, link.ID, profile)
		return &Resolution{Outcome: OutcomeReturning, User: owner, Profile: profile}, nil
	case errors.Is(err, repository.ErrSocialAccountNotFound):
	default:
		return nil, internalError("find social link", err)
	}

	owner, err := s.users.FindActiveByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return &Resolution{Outcome: OutcomeNewUser, Profile: profile}, nil
	case err != nil:
		return nil, internalError("find user by email", err)
	}
	links, err := s.links.ListByUserID(ctx, owner.ID)
	if err != nil {
		return nil, internalError("list social links", err)
	}
	for _, l := range links {
		if l.Provider == profile.Provider {
			return &Resolution{Outcome: OutcomeReturning, User: owner, Profile: profile}, nil
		}
	}
	return nil, existingAccount(owner, links, profile.Provider)
}

func (s *IdentityService) storeProviderTokens(ctx context.Context, linkID uint, profile *SocialProfile) {
	if profile.Token == nil || profile.Token.AccessToken == "" {
		return
	}
	var exp *time.Time
	if !profile.Token.Expiry.IsZero() {
		e := profile.Token.Expiry
		exp = &e
	}
	if err := s.links.StoreTokens(ctx, linkID, profile.Token.AccessToken, profile.Token.RefreshToken, exp); err != nil {
		s.logger.WarnContext(ctx, "store provider tokens failed", "provider", profile.Provider, "error", err)
	}
}

func existingAccount(owner *domain.User, links []domain.SocialAccountLink, attempted domain.Provider) *ExistingAccountError {
	providers := make([]domain.Provider, 0, len(links))
	for _, l := range links {
		providers = append(providers, l.Provider)
	}
	return &ExistingAccountError{
		Email:             owner.Email,
		MaskedEmail:       MaskEmail(owner.Email),
		HasPassword:       owner.HasPassword(),
		LinkedProviders:   providers,
		AttemptedProvider: attempted,
	}
}

func resolveLabel(res *Resolution, err error) string {
	var existing *ExistingAccountError
	switch {
	case errors.As(err, &existing):
		return "existing_account"
	case errors.Is(err, ErrAccountWithdrawn):
		return "withdrawn"
	case err != nil:
		return "error"
	default:
		return string(res.Outcome)
	}
}

// CompleteRegistration creates the account for a provider identity that
// resolved to OutcomeNewUser. The user, link and role profile are written in
// one transaction; a concurrent duplicate reports the same collision a
// pre-check would.
func (s *IdentityService) CompleteRegistration(ctx context.Context, profile *SocialProfile, form RegistrationForm) (*domain.User, error) {
	ctx, span := observability.StartSpan(ctx, "identity.complete_registration",
		attribute.String("provider", string(profile.Provider)),
		attribute.String("role", string(form.Role)),
	)
	user, err := s.completeRegistration(ctx, profile, form)
	observability.EndSpan(span, err)
	observability.RecordRegistrationEvent(ctx, strings.ToLower(string(profile.Provider)), string(form.Role), registrationLabel(err))
	return user, err
}

func (s *IdentityService) completeRegistration(ctx context.Context, profile *SocialProfile, form RegistrationForm) (*domain.User, error) {
	if strings.TrimSpace(form.Phone) == "" {
		form.Phone = profile.Phone
	}
	if form.RealName == "" {
		form.RealName = profile.Name
	}
	if form.BirthDate == nil {
		form.BirthDate = profile.BirthDate
	}
	phone, err := form.validate(s.now())
	if err != nil {
		return nil, err
	}

	res, err := s.resolve(ctx, profile)
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeReturning {
		return nil, ErrAlreadyRegistered
	}
	if err := s.ensurePhoneFree(ctx, phone); err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        profile.Email,
		Phone:        phone,
		Provider:     profile.Provider,
		ProfileImage: profile.ProfileImage,
	}
	reg := buildRegistration(user, &form, s.now().UTC())
	reg.Link = &domain.SocialAccountLink{Provider: profile.Provider, ProviderID: profile.ProviderID}
	if err := s.registrations.Register(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.classifyDuplicate(ctx, profile, user)
		}
		return nil, internalError("register social account", err)
	}
	return user, nil
}

// RegisterLocal creates a NORMAL channel account with a password.
func (s *IdentityService) RegisterLocal(ctx context.Context, form LocalRegistrationForm) (*domain.User, error) {
	ctx, span := observability.StartSpan(ctx, "identity.register_local", attribute.String("role", string(form.Role)))
	user, err := s.registerLocal(ctx, form)
	observability.EndSpan(span, err)
	observability.RecordRegistrationEvent(ctx, "normal", string(form.Role), registrationLabel(err))
	return user, err
}

func (s *IdentityService) registerLocal(ctx context.Context, form LocalRegistrationForm) (*domain.User, error) {
	phone, email, err := form.validate(s.now())
	if err != nil {
		return nil, err
	}
	if ok, err := s.UsernameAvailable(ctx, form.Username); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUsernameTaken
	}
	if ok, err := s.EmailAvailable(ctx, email); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrEmailTaken
	}
	if err := s.ensurePhoneFree(ctx, phone); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(form.Password)
	if err != nil {
		return nil, internalError("hash password", err)
	}
	username := form.Username
	user := &domain.User{
		Username:     &username,
		Email:        email,
		Phone:        phone,
		Provider:     domain.ProviderNormal,
		PasswordHash: &hash,
	}
	reg := buildRegistration(user, &form.RegistrationForm, s.now().UTC())
	if err := s.registrations.Register(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.classifyDuplicate(ctx, nil, user)
		}
		return nil, internalError("register local account", err)
	}
	return user, nil
}

func (s *IdentityService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.users.FindActiveByUsername(ctx, username)
	return available(err, "find user by username")
}

func (s *IdentityService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	_, err := s.users.FindActiveByEmail(ctx, email)
	return available(err, "find user by email")
}

func available(err error, op string) (bool, error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, repository.ErrUserNotFound):
		return true, nil
	default:
		return false, internalError(op, err)
	}
}

func (s *IdentityService) ensurePhoneFree(ctx context.Context, phone string) error {
	_, err := s.users.FindActiveByPhone(ctx, phone)
	ok, err := available(err, "find user by phone")
	if err != nil {
		return err
	}
	if !ok {
		return ErrPhoneTaken
	}
	return nil
}

// classifyDuplicate turns a unique violation from the store into the error a
// pre-check would have produced. profile is nil for local registrations.
func (s *IdentityService) classifyDuplicate(ctx context.Context, profile *SocialProfile, attempted *domain.User) error {
	if owner, err := s.users.FindActiveByEmail(ctx, attempted.Email); err == nil {
		if profile == nil {
			return ErrEmailTaken
		}
		links, err := s.links.ListByUserID(ctx, owner.ID)
		if err != nil {
			return internalError("list social links", err)
		}
		for _, l := range links {
			if l.Provider == profile.Provider && l.ProviderID == profile.ProviderID {
				return ErrAlreadyRegistered
			}
		}
		return existingAccount(owner, links, profile.Provider)
	}
	if profile != nil {
		if _, err := s.links.FindByProvider(ctx, profile.Provider, profile.ProviderID); err == nil {
			return ErrAlreadyRegistered
		}
	}
	if attempted.Username != nil {
		if ok, err := s.UsernameAvailable(ctx, *attempted.Username); err == nil && !ok {
			return ErrUsernameTaken
		}
	}
	if err := s.ensurePhoneFree(ctx, attempted.Phone); err != nil {
		return err
	}
	return ErrConflict
}

func registrationLabel(err error) string {
	var existing *ExistingAccountError
	switch {
	case err == nil:
		return "created"
	case errors.As(err, &existing):
		return "existing_account"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
