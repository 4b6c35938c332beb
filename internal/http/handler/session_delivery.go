package handler

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/security"
	"github.com/vetmatch/identity/internal/service"
)

type DeliveryKind string

const (
	DeliverLogin           DeliveryKind = "login"
	DeliverSignupRequired  DeliveryKind = "signup_required"
	DeliverExistingAccount DeliveryKind = "existing_account"
	DeliverError           DeliveryKind = "error"
)

// Delivery is one OAuth callback outcome on its way to the browser.
type Delivery struct {
	Kind     DeliveryKind
	Popup    bool
	Provider domain.Provider

	User   *domain.User
	Tokens *service.TokenPair

	SignupToken string
	Profile     *service.SocialProfile

	Existing *service.ExistingAccountError

	ErrorCode string
	Message   string
}

// SessionDelivery hands a callback outcome to the client. It is the only
// place that knows about popups, postMessage and local storage.
type SessionDelivery interface {
	Deliver(w http.ResponseWriter, r *http.Request, d Delivery)
}

type BrowserSessionDelivery struct {
	cookies     *security.CookieManager
	frontendURL string
	origin      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	signupTTL   time.Duration
}

func NewBrowserSessionDelivery(cookies *security.CookieManager, frontendURL, frontendOrigin string, accessTTL, refreshTTL, signupTTL time.Duration) *BrowserSessionDelivery {
	return &BrowserSessionDelivery{
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		origin:      frontendOrigin,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		signupTTL:   signupTTL,
	}
}

var deliveryPage = template.Must(template.New("delivery").Parse(`<!doctype html>
<html lang="ko">
<head><meta charset="utf-8"><title>VetMatch</title></head>
<body>
<script nonce="{{.Nonce}}">
(function () {
  var message = {{.Message}};
  var target = {{.Redirect}};
{{- if .Popup}}
  if (window.opener && !window.opener.closed) {
    window.opener.postMessage(message, {{.Origin}});
    window.close();
    return;
  }
{{- end}}
{{- if .Token}}
  try { window.localStorage.setItem("auth_token", {{.Token}}); } catch (e) {}
{{- end}}
  window.location.replace(target);
})();
</script>
</body>
</html>
`))

type deliveryView struct {
	Nonce    string
	Message  map[string]any
	Redirect string
	Origin   string
	Popup    bool
	Token    string
}

func (b *BrowserSessionDelivery) Deliver(w http.ResponseWriter, r *http.Request, d Delivery) {
	redirect := b.redirectFor(d)
	payload := map[string]any{"redirect": redirect}

	switch d.Kind {
	case DeliverLogin:
		b.cookies.SetSessionCookies(w, d.Tokens.AccessToken, b.accessTTL, d.Tokens.RefreshToken, b.refreshTTL)
		b.cookies.ClearSignupCookie(w)
		payload["user"] = d.User
		payload["access_token"] = d.Tokens.AccessToken
		payload["expires_at"] = d.Tokens.ExpiresAt
	case DeliverSignupRequired:
		b.cookies.SetSignupCookie(w, d.SignupToken, b.signupTTL)
		payload["provider"] = d.Provider
		if d.Profile != nil {
			payload["email"] = service.MaskEmail(d.Profile.Email)
		}
	case DeliverExistingAccount:
		payload["email"] = d.Existing.MaskedEmail
		payload["channels"] = d.Existing.Channels()
		payload["attempted"] = strings.ToLower(string(d.Existing.AttemptedProvider))
	default:
		payload["code"] = d.ErrorCode
		payload["message"] = d.Message
	}

	// Non-popup outcomes without a token to mirror are plain redirects.
	if !d.Popup && d.Kind != DeliverLogin {
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}

	nonce, err := security.NewRandomString(16)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to render session page", nil)
		return
	}
	view := deliveryView{
		Nonce:    nonce,
		Message:  map[string]any{"type": string(d.Kind), "payload": payload},
		Redirect: redirect,
		Origin:   b.origin,
		Popup:    d.Popup,
	}
	if d.Kind == DeliverLogin && !d.Popup {
		view.Token = d.Tokens.AccessToken
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Security-Policy", "default-src 'none'; script-src 'nonce-"+nonce+"'; base-uri 'none'; frame-ancestors 'none'")
	w.WriteHeader(http.StatusOK)
	_ = deliveryPage.Execute(w, view)
}

func (b *BrowserSessionDelivery) redirectFor(d Delivery) string {
	switch d.Kind {
	case DeliverLogin:
		return b.frontendURL + "/"
	case DeliverSignupRequired:
		return b.frontendURL + "/register/social?provider=" + url.QueryEscape(strings.ToLower(string(d.Provider)))
	case DeliverExistingAccount:
		return b.frontendURL + ExistingAccountPath(d.Existing)
	default:
		return b.frontendURL + "/login?error=" + url.QueryEscape(strings.ToLower(d.ErrorCode))
	}
}

// ExistingAccountPath is the interstitial for a provider email that already
// belongs to another sign-in channel. The same collision always yields the
// same path.
func ExistingAccountPath(e *service.ExistingAccountError) string {
	return "/auth/existing-account?email=" + url.QueryEscape(e.MaskedEmail) +
		"&channels=" + url.QueryEscape(strings.Join(e.Channels(), ",")) +
		"&attempted=" + url.QueryEscape(strings.ToLower(string(e.AttemptedProvider)))
}
