package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewCookieManagerSameSiteMapping(t *testing.T) {
	if got := NewCookieManager("", true, "strict").SameSite; got != http.SameSiteStrictMode {
		t.Fatalf("strict mapping mismatch: %v", got)
	}
	if got := NewCookieManager("", true, "none").SameSite; got != http.SameSiteNoneMode {
		t.Fatalf("none mapping mismatch: %v", got)
	}
	if got := NewCookieManager("", true, "unexpected").SameSite; got != http.SameSiteLaxMode {
		t.Fatalf("default mapping mismatch: %v", got)
	}
}

func cookiesByName(rr *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestCookieManagerSetSessionCookiesFlagsAndPaths(t *testing.T) {
	mgr := NewCookieManager("example.com", true, "strict")
	rr := httptest.NewRecorder()
	mgr.SetSessionCookies(rr, "a", 7*24*time.Hour, "r", 30*24*time.Hour)

	byName := cookiesByName(rr)
	if len(byName) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(byName))
	}
	access := byName[AccessCookieName]
	if access == nil || access.Path != "/" || !access.HttpOnly || !access.Secure || access.Domain != "example.com" || access.MaxAge != 7*24*3600 {
		t.Fatalf("unexpected access cookie: %#v", access)
	}
	if access.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected access same-site: %v", access.SameSite)
	}
	refresh := byName[RefreshCookieName]
	if refresh == nil || refresh.Path != "/api/v1/auth" || !refresh.HttpOnly || refresh.MaxAge != 30*24*3600 {
		t.Fatalf("unexpected refresh cookie: %#v", refresh)
	}
}

func TestCookieManagerAccessOnlySession(t *testing.T) {
	rr := httptest.NewRecorder()
	NewCookieManager("", false, "lax").SetSessionCookies(rr, "a", time.Hour, "", 0)
	byName := cookiesByName(rr)
	if byName[AccessCookieName] == nil || byName[AccessCookieName].Value != "a" {
		t.Fatalf("expected the access cookie, got %v", byName)
	}
	refresh := byName[RefreshCookieName]
	if refresh == nil || refresh.Value != "" || refresh.MaxAge >= 0 || refresh.Path != "/api/v1/auth" {
		t.Fatalf("access-only sessions must expire the refresh cookie, got %#v", refresh)
	}
}

func TestCookieManagerClearCookies(t *testing.T) {
	mgr := NewCookieManager("example.com", false, "lax")
	rr := httptest.NewRecorder()
	mgr.ClearSessionCookies(rr)
	mgr.ClearStateCookie(rr)
	mgr.ClearSignupCookie(rr)

	expect := map[string]string{
		AccessCookieName:  "/",
		RefreshCookieName: "/api/v1/auth",
		StateCookieName:   "/api/v1/auth",
		SignupCookieName:  "/api/v1/auth/social",
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != len(expect) {
		t.Fatalf("expected %d cleared cookies, got %d", len(expect), len(cookies))
	}
	for _, c := range cookies {
		path, ok := expect[c.Name]
		if !ok {
			t.Fatalf("unexpected cleared cookie %q", c.Name)
		}
		if c.MaxAge != -1 || c.Value != "" || !c.HttpOnly || c.Path != path {
			t.Fatalf("cookie %q not cleared correctly: %#v", c.Name, c)
		}
	}
}

func TestGetCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "x"})

	if got := GetCookie(req, AccessCookieName); got != "x" {
		t.Fatalf("unexpected cookie value %q", got)
	}
	if got := GetCookie(req, "missing"); got != "" {
		t.Fatalf("expected empty cookie value for missing cookie, got %q", got)
	}
}
