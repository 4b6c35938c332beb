package service

import (
	"errors"
	"testing"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/security"
)

func newTokenServiceForTest(now *time.Time) *TokenService {
	mgr := security.NewJWTManager("vetmatch-identity", "vetmatch-api", testAccessSecret, testRefreshSecret).
		WithClock(func() time.Time { return *now })
	return NewTokenService(mgr, 7*24*time.Hour, 30*24*time.Hour, 30*time.Minute)
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := newTokenServiceForTest(&now)
	user := &domain.User{ID: 42, Email: "vet@example.com", Role: domain.RoleHospital}

	pair, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !pair.ExpiresAt.Equal(now.Add(7*24*time.Hour)) || !pair.RefreshExpiresAt.Equal(now.Add(30*24*time.Hour)) {
		t.Fatalf("unexpected expiries: %s %s", pair.ExpiresAt, pair.RefreshExpiresAt)
	}
	claims, err := svc.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id, _ := claims.UserID(); id != 42 || claims.Email != "vet@example.com" || claims.Role != string(domain.RoleHospital) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := svc.Verify(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}
	subject, err := svc.RefreshSubject(pair.RefreshToken)
	if err != nil || subject != 42 {
		t.Fatalf("refresh subject: %d %v", subject, err)
	}
	if _, err := svc.RefreshSubject(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not pass as refresh token, got %v", err)
	}
}

func TestTokenServiceExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := newTokenServiceForTest(&now)
	access, err := svc.IssueAccess(&domain.User{ID: 1, Email: "vet@example.com", Role: domain.RoleVeterinarian})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(7*24*time.Hour - time.Minute)
	if _, err := svc.Verify(access.Token); err != nil {
		t.Fatalf("token must be valid before expiry: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := svc.Verify(access.Token); !errors.Is(err, ErrInvalidToken) || !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired token to be unauthorized, got %v", err)
	}
}

func TestTokenServiceRejectsUserWithoutID(t *testing.T) {
	now := time.Now()
	svc := newTokenServiceForTest(&now)
	if _, err := svc.Issue(&domain.User{}); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestTokenServiceSignupRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := newTokenServiceForTest(&now)
	birth := time.Date(1994, 7, 15, 0, 0, 0, 0, time.UTC)
	in := &SocialProfile{
		Provider:     domain.ProviderNaver,
		ProviderID:   "n-123",
		Email:        "vet@example.com",
		Name:         "Kim Vet",
		Phone:        "01012345678",
		BirthDate:    &birth,
		ProfileImage: "https://phinf.example/p.png",
	}

	token, err := svc.IssueSignup(in)
	if err != nil {
		t.Fatalf("issue signup: %v", err)
	}
	out, err := svc.ParseSignup(token)
	if err != nil {
		t.Fatalf("parse signup: %v", err)
	}
	if out.Provider != in.Provider || out.ProviderID != in.ProviderID || out.Email != in.Email || out.Phone != in.Phone || out.Name != in.Name {
		t.Fatalf("profile mismatch: %+v", out)
	}
	if out.BirthDate == nil || !out.BirthDate.Equal(birth) {
		t.Fatalf("birth date mismatch: %v", out.BirthDate)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("signup token must not authenticate, got %v", err)
	}
	now = now.Add(31 * time.Minute)
	if _, err := svc.ParseSignup(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired signup token, got %v", err)
	}
}

func TestTokenServiceParseSignupRejectsGarbage(t *testing.T) {
	now := time.Now()
	svc := newTokenServiceForTest(&now)
	for _, token := range []string{"", "abc", "a.b.c"} {
		if _, err := svc.ParseSignup(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("ParseSignup(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}
