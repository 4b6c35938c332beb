package security

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessCookieName  = "auth_token"
	RefreshCookieName = "refresh_token"
	StateCookieName   = "oauth_state"
	SignupCookieName  = "social_signup"

	refreshCookiePath = "/api/v1/auth"
	stateCookiePath   = "/api/v1/auth"
	signupCookiePath  = "/api/v1/auth/social"
)

type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	mode := http.SameSiteLaxMode
	switch strings.ToLower(sameSite) {
	case "strict":
		mode = http.SameSiteStrictMode
	case "none":
		mode = http.SameSiteNoneMode
	}
	return &CookieManager{Domain: domain, Secure: secure, SameSite: mode}
}

func (m *CookieManager) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   m.Domain,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = time.Now().Add(ttl)
	} else {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	return c
}

// SetSessionCookies writes the access cookie and the refresh cookie scoped to
// the auth routes. An empty refresh expires any refresh cookie left by an
// earlier session so it cannot be exchanged for that session's identity.
func (m *CookieManager) SetSessionCookies(w http.ResponseWriter, access string, accessTTL time.Duration, refresh string, refreshTTL time.Duration) {
	http.SetCookie(w, m.cookie(AccessCookieName, access, "/", accessTTL))
	if refresh == "" {
		refreshTTL = 0
	}
	http.SetCookie(w, m.cookie(RefreshCookieName, refresh, refreshCookiePath, refreshTTL))
}

func (m *CookieManager) ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(AccessCookieName, "", "/", 0))
	http.SetCookie(w, m.cookie(RefreshCookieName, "", refreshCookiePath, 0))
}

func (m *CookieManager) SetStateCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, m.cookie(StateCookieName, value, stateCookiePath, ttl))
}

func (m *CookieManager) ClearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(StateCookieName, "", stateCookiePath, 0))
}

func (m *CookieManager) SetSignupCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, m.cookie(SignupCookieName, value, signupCookiePath, ttl))
}

func (m *CookieManager) ClearSignupCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(SignupCookieName, "", signupCookiePath, 0))
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
