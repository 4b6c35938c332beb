package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/observability"

	"golang.org/x/oauth2"
)

// OAuthService drives the provider round trips of a social sign-in. It never
// touches the credential store.
type OAuthService struct {
	providers OAuthProviders
	timeout   time.Duration
}

func NewOAuthService(providers OAuthProviders, timeout time.Duration) *OAuthService {
	return &OAuthService{providers: providers, timeout: timeout}
}

func (s *OAuthService) LoginURL(provider domain.Provider, state string) (string, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state), nil
}

// Authenticate exchanges code and fetches the provider profile. Timeouts
// surface as a retryable ErrInternal, a rejected code as ErrUnauthorized.
func (s *OAuthService) Authenticate(ctx context.Context, provider domain.Provider, code string) (*SocialProfile, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrOAuthCodeRejected
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	label := strings.ToLower(string(provider))

	exchangeStart := time.Now()
	token, err := p.Exchange(ctx, code)
	observability.RecordOAuthRequestDuration(ctx, label, "exchange", oauthStatus(err), time.Since(exchangeStart))
	if err != nil {
		observability.RecordOAuthError(ctx, label, classifyOAuthError(err))
		if isTimeout(err) || errors.Is(err, context.Canceled) {
			return nil, internalError("oauth exchange", err)
		}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return nil, internalError("oauth exchange", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrOAuthCodeRejected, err)
	}

	profileStart := time.Now()
	profile, err := p.FetchProfile(ctx, token)
	observability.RecordOAuthRequestDuration(ctx, label, "userinfo", oauthStatus(err), time.Since(profileStart))
	if err != nil {
		observability.RecordOAuthError(ctx, label, classifyOAuthError(err))
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		return nil, internalError("oauth userinfo", err)
	}
	if profile == nil || profile.ProviderID == "" {
		observability.RecordOAuthError(ctx, label, "invalid_userinfo")
		return nil, internalError("oauth userinfo", errMissingUserInfo)
	}
	profile.Provider = provider
	profile.Token = token
	return profile, nil
}

func oauthStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func classifyOAuthError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, ErrProviderEmailMissing) {
		return "email_missing"
	}
	if errors.Is(err, errMissingUserInfo) {
		return "invalid_userinfo"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "userinfo status:"):
		return "userinfo_status"
	case strings.Contains(msg, "oauth2"):
		return "oauth2_exchange"
	default:
		return "other"
	}
}
