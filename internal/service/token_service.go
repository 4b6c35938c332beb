package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/security"
)

type AccessToken struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenService issues the bearer credentials handed to clients. Tokens are
// stateless; revocation happens only through expiry.
type TokenService struct {
	jwtMgr     *security.JWTManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	signupTTL  time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, accessTTL, refreshTTL, signupTTL time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, accessTTL: accessTTL, refreshTTL: refreshTTL, signupTTL: signupTTL}
}

func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// Issue signs an access/refresh pair for user.
func (s *TokenService) Issue(user *domain.User) (*TokenPair, error) {
	access, err := s.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.jwtMgr.SignRefreshToken(user.ID, s.refreshTTL)
	if err != nil {
		return nil, internalError("sign refresh token", err)
	}
	return &TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh,
		ExpiresAt:        access.ExpiresAt,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess signs a single access token. Password login uses this form.
func (s *TokenService) IssueAccess(user *domain.User) (*AccessToken, error) {
	if user == nil || user.ID == 0 {
		return nil, internalError("sign access token", errors.New("user without id"))
	}
	token, exp, err := s.jwtMgr.SignAccessToken(user.ID, user.Email, string(user.Role), s.accessTTL)
	if err != nil {
		return nil, internalError("sign access token", err)
	}
	return &AccessToken{Token: token, ExpiresAt: exp}, nil
}

func (s *TokenService) Verify(token string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// RefreshSubject validates a refresh token and returns its user id.
func (s *TokenService) RefreshSubject(token string) (uint, error) {
	claims, err := s.jwtMgr.ParseRefreshToken(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return id, nil
}

// IssueSignup seals a provider profile that has no account yet. The token
// is the only carrier of that profile until registration completes.
func (s *TokenService) IssueSignup(p *SocialProfile) (string, error) {
	claims := security.SignupClaims{
		Provider:     string(p.Provider),
		ProviderID:   p.ProviderID,
		Email:        p.Email,
		Name:         p.Name,
		Phone:        p.Phone,
		ProfileImage: p.ProfileImage,
	}
	if p.BirthDate != nil {
		claims.BirthDate = p.BirthDate.Format(time.DateOnly)
	}
	token, err := s.jwtMgr.SignSignupToken(claims, s.signupTTL)
	if err != nil {
		return "", internalError("sign signup token", err)
	}
	return token, nil
}

func (s *TokenService) ParseSignup(token string) (*SocialProfile, error) {
	claims, err := s.jwtMgr.ParseSignupToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	provider, ok := domain.ParseProvider(claims.Provider)
	if !ok || !provider.Social() || claims.ProviderID == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: signup token payload", ErrInvalidToken)
	}
	p := &SocialProfile{
		Provider:     provider,
		ProviderID:   claims.ProviderID,
		Email:        claims.Email,
		Name:         claims.Name,
		Phone:        claims.Phone,
		ProfileImage: claims.ProfileImage,
	}
	if claims.BirthDate != "" {
		if d, err := time.Parse(time.DateOnly, claims.BirthDate); err == nil {
			p.BirthDate = &d
		}
	}
	return p, nil
}
