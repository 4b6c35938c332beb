package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestRequestIDMirrorsHeaders(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(chimiddleware.RequestIDHeader)
	}))

	t.Run("generated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
		if seen == "" || rr.Header().Get(chimiddleware.RequestIDHeader) != seen {
			t.Fatalf("expected generated id on request and response, got %q / %q", seen, rr.Header().Get(chimiddleware.RequestIDHeader))
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set(chimiddleware.RequestIDHeader, "upstream-7")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if seen != "upstream-7" || rr.Header().Get(chimiddleware.RequestIDHeader) != "upstream-7" {
			t.Fatalf("expected upstream id, got %q", seen)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'self'",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Fatalf("%s = %q, want %q", header, got, want)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must only be sent over TLS")
	}
}

func TestCORS(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantCode   int
		wantOrigin string
	}{
		{name: "known origin", method: http.MethodGet, origin: "https://app.vetmatch.kr", wantCode: http.StatusOK, wantOrigin: "https://app.vetmatch.kr"},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.example.com", wantCode: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "https://app.vetmatch.kr", preflight: true, wantCode: http.StatusNoContent, wantOrigin: "https://app.vetmatch.kr"},
		{name: "no origin", method: http.MethodPost, wantCode: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := CORS([]string{"https://app.vetmatch.kr"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tc.preflight {
					t.Fatal("preflight must short-circuit")
				}
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tc.method, "/api/v1/account/withdraw", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow-origin = %q, want %q", got, tc.wantOrigin)
			}
			if tc.wantOrigin != "" && rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Fatal("trusted origins must be allowed credentials")
			}
			if tc.wantOrigin == "" && rr.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Fatal("untrusted origins must not be allowed credentials")
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	t.Run("small payload", func(t *testing.T) {
		h := BodyLimit(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := io.ReadAll(r.Body); err != nil {
				t.Fatalf("unexpected read error: %v", err)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"a":1}`)))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	})

	t.Run("oversized payload", func(t *testing.T) {
		h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := io.ReadAll(r.Body)
			var maxBytesErr *http.MaxBytesError
			if !errors.As(err, &maxBytesErr) {
				t.Fatalf("expected MaxBytesError, got %v", err)
			}
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("123456789")))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", rr.Code)
		}
	})
}
