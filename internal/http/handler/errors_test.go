package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/service"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", service.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"withdrawn owner", service.ErrAccountWithdrawn, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", service.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"password required", service.ErrPasswordRequired, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"conflict", service.ErrPhoneTaken, http.StatusConflict, "CONFLICT"},
		{"existing account", &service.ExistingAccountError{}, http.StatusConflict, "EXISTING_ACCOUNT"},
		{"gone", service.ErrRecoveryExpired, http.StatusGone, "GONE"},
		{"validation", &service.ValidationError{Field: "phone"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"throttled", &service.ThrottledError{RetryAfter: time.Second}, http.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
		{"retryable", &service.InternalError{Op: "q", Err: context.DeadlineExceeded, Retryable: true}, http.StatusServiceUnavailable, "RETRYABLE"},
		{"internal", &service.InternalError{Op: "q", Err: errors.New("boom")}, http.StatusInternalServerError, "INTERNAL"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
		{"wrapped", fmt.Errorf("handler: %w", service.ErrRecoveryExpired), http.StatusGone, "GONE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := classify(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("classify(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
			}
		})
	}
}

func TestWriteServiceErrorDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)

	t.Run("existing account", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeServiceError(rr, req, &service.ExistingAccountError{
			MaskedEmail:       "ki****@example.com",
			HasPassword:       true,
			AttemptedProvider: domain.ProviderKakao,
		})
		env := expectError(t, rr, http.StatusConflict, "EXISTING_ACCOUNT")
		var details struct {
			Email     string   `json:"email"`
			Channels  []string `json:"channels"`
			Attempted string   `json:"attempted"`
			Redirect  string   `json:"redirect"`
		}
		if err := json.Unmarshal(env.Error.Details, &details); err != nil {
			t.Fatalf("decode details: %v", err)
		}
		if details.Email != "ki****@example.com" || len(details.Channels) != 1 || details.Channels[0] != "normal" || details.Attempted != "kakao" {
			t.Fatalf("unexpected details %+v", details)
		}
		if !strings.HasPrefix(details.Redirect, "/auth/existing-account?") {
			t.Fatalf("unexpected redirect %q", details.Redirect)
		}
	})

	t.Run("throttled sets retry-after", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeServiceError(rr, req, &service.ThrottledError{RetryAfter: 1500 * time.Millisecond})
		expectError(t, rr, http.StatusTooManyRequests, "TOO_MANY_REQUESTS")
		if got := rr.Header().Get("Retry-After"); got != "2" {
			t.Fatalf("expected Retry-After=2, got %q", got)
		}
	})

	t.Run("validation names the field", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeServiceError(rr, req, &service.ValidationError{Field: "business_number", Message: "must be 10 digits"})
		env := expectError(t, rr, http.StatusBadRequest, "BAD_REQUEST")
		if env.Error.Message != "must be 10 digits" || !strings.Contains(string(env.Error.Details), "business_number") {
			t.Fatalf("unexpected error %+v", env.Error)
		}
	})

	t.Run("internal cause is hidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeServiceError(rr, req, &service.InternalError{Op: "find user", Err: errors.New("pq: password authentication failed")})
		env := expectError(t, rr, http.StatusInternalServerError, "INTERNAL")
		if strings.Contains(env.Error.Message, "pq") {
			t.Fatalf("internal cause leaked: %q", env.Error.Message)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeServiceError(rr, req, &service.InternalError{Op: "find user", Err: context.DeadlineExceeded, Retryable: true})
		expectError(t, rr, http.StatusServiceUnavailable, "RETRYABLE")
		if rr.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After on retryable failures")
		}
	})
}
