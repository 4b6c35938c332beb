package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/http/middleware"
	"github.com/vetmatch/identity/internal/security"
	"github.com/vetmatch/identity/internal/service"
)

const testStateKey = "state-signing-secret-for-tests"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Success || env.Error == nil || env.Error.Code != code {
		t.Fatalf("expected error code %q, got %+v", code, env.Error)
	}
	return env
}

func withClaims(r *http.Request, sub string) *http.Request {
	claims := &security.Claims{Type: security.TokenTypeAccess}
	claims.Subject = sub
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsContextKey, claims))
}

// jsonPost builds a POST with a JSON content type; an empty body sends none.
func jsonPost(target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, target, nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func isClearedCookie(cookies []*http.Cookie, name string) bool {
	c := findCookie(cookies, name)
	return c != nil && c.MaxAge < 0
}

func testUser(id uint) *domain.User {
	return &domain.User{ID: id, Email: "kimvet@example.com", Phone: "01012345678", Role: domain.RoleVeterinarian, Provider: domain.ProviderGoogle, IsActive: true}
}

func testTokens() *service.TokenPair {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &service.TokenPair{
		AccessToken:      "access-token",
		RefreshToken:     "refresh-token",
		ExpiresAt:        now.Add(7 * 24 * time.Hour),
		RefreshExpiresAt: now.Add(30 * 24 * time.Hour),
	}
}

var errNotImplemented = errors.New("not implemented")

type stubAuthService struct {
	loginURLFn  func(provider domain.Provider, state string) (string, error)
	callbackFn  func(ctx context.Context, provider domain.Provider, code string) (*service.CallbackResult, error)
	pendingFn   func(token string) (*service.SocialProfile, error)
	completeFn  func(ctx context.Context, token string, form service.RegistrationForm) (*service.LoginResult, error)
	registerFn  func(ctx context.Context, form service.LocalRegistrationForm) (*service.LoginResult, error)
	passwordFn  func(ctx context.Context, login, password, ip string) (*service.PasswordLoginResult, error)
	refreshFn   func(ctx context.Context, token string) (*service.LoginResult, error)
	usernameFn  func(ctx context.Context, username string) (bool, error)
	emailFn     func(ctx context.Context, email string) (bool, error)
	lastState   string
	lastCode    string
	lastLoginIP string
}

func (s *stubAuthService) SocialLoginURL(provider domain.Provider, state string) (string, error) {
	s.lastState = state
	if s.loginURLFn != nil {
		return s.loginURLFn(provider, state)
	}
	return "https://accounts.example.com/authorize?state=" + state, nil
}

func (s *stubAuthService) HandleSocialCallback(ctx context.Context, provider domain.Provider, code string) (*service.CallbackResult, error) {
	s.lastCode = code
	if s.callbackFn != nil {
		return s.callbackFn(ctx, provider, code)
	}
	return nil, errNotImplemented
}

func (s *stubAuthService) PendingSignup(token string) (*service.SocialProfile, error) {
	if s.pendingFn != nil {
		return s.pendingFn(token)
	}
	return nil, errNotImplemented
}

func (s *stubAuthService) CompleteSocialRegistration(ctx context.Context, token string, form service.RegistrationForm) (*service.LoginResult, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, token, form)
	}
	return nil, errNotImplemented
}

func (s *stubAuthService) RegisterLocal(ctx context.Context, form service.LocalRegistrationForm) (*service.LoginResult, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, form)
	}
	return nil, errNotImplemented
}

func (s *stubAuthService) LoginWithPassword(ctx context.Context, login, password, ip string) (*service.PasswordLoginResult, error) {
	s.lastLoginIP = ip
	if s.passwordFn != nil {
		return s.passwordFn(ctx, login, password, ip)
	}
	return nil, errNotImplemented
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*service.LoginResult, error) {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, token)
	}
	return nil, errNotImplemented
}

func (s *stubAuthService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if s.usernameFn != nil {
		return s.usernameFn(ctx, username)
	}
	return false, errNotImplemented
}

func (s *stubAuthService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	if s.emailFn != nil {
		return s.emailFn(ctx, email)
	}
	return false, errNotImplemented
}

type stubLifecycleService struct {
	withdrawFn func(ctx context.Context, userID uint, reason string) (time.Time, error)
	checkFn    func(ctx context.Context, phone string) (*service.RecoveryStatus, error)
	recoverFn  func(ctx context.Context, phone, password, ip string) (*service.RecoveryResult, error)
}

func (s *stubLifecycleService) Withdraw(ctx context.Context, userID uint, reason string) (time.Time, error) {
	if s.withdrawFn != nil {
		return s.withdrawFn(ctx, userID, reason)
	}
	return time.Time{}, errNotImplemented
}

func (s *stubLifecycleService) CheckRecoverable(ctx context.Context, phone string) (*service.RecoveryStatus, error) {
	if s.checkFn != nil {
		return s.checkFn(ctx, phone)
	}
	return nil, errNotImplemented
}

func (s *stubLifecycleService) Recover(ctx context.Context, phone, password, ip string) (*service.RecoveryResult, error) {
	if s.recoverFn != nil {
		return s.recoverFn(ctx, phone, password, ip)
	}
	return nil, errNotImplemented
}

type stubUserService struct {
	getFn func(ctx context.Context, userID uint) (*service.UserView, error)
}

func (s *stubUserService) GetProfile(ctx context.Context, userID uint) (*service.UserView, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return nil, errNotImplemented
}

type recordingDelivery struct {
	got   *Delivery
	calls int
}

func (d *recordingDelivery) Deliver(w http.ResponseWriter, _ *http.Request, del Delivery) {
	d.calls++
	d.got = &del
	w.WriteHeader(http.StatusOK)
}
