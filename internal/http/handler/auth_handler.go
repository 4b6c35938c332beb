package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/observability"
	"github.com/vetmatch/identity/internal/security"
	"github.com/vetmatch/identity/internal/service"
)

const (
	stateTTL   = 10 * time.Minute
	popupMode  = "popup"
	directMode = "direct"
)

type AuthHandler struct {
	authSvc    service.AuthServiceInterface
	delivery   SessionDelivery
	cookieMgr  *security.CookieManager
	stateKey   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(authSvc service.AuthServiceInterface, delivery SessionDelivery, cookieMgr *security.CookieManager, stateKey string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authSvc:    authSvc,
		delivery:   delivery,
		cookieMgr:  cookieMgr,
		stateKey:   stateKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// SocialLogin starts the provider flow. The signed state cookie also
// remembers whether the flow runs in a popup.
func (h *AuthHandler) SocialLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	provider, _ := domain.ParseProvider(chi.URLParam(r, "provider"))
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "social_login", status, time.Since(start))
	}()

	if !provider.Social() {
		status = "failure"
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "unknown oauth provider", nil)
		return
	}
	state, err := security.NewRandomString(24)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.social.login.failed", "provider", provider, "reason", "state_generation")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to generate oauth state", nil)
		return
	}
	loginURL, err := h.authSvc.SocialLoginURL(provider, state)
	if err != nil {
		status = "failure"
		writeServiceError(w, r, err)
		return
	}
	mode := directMode
	if r.URL.Query().Get("popup") == "1" {
		mode = popupMode
	}
	h.cookieMgr.SetStateCookie(w, security.SignState(state+":"+mode, h.stateKey), stateTTL)
	observability.Audit(r, "auth.social.login.redirect", "provider", provider, "mode", mode)
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// SocialCallback verifies the one-time state, reconciles the identity and
// hands the outcome to the session delivery.
func (h *AuthHandler) SocialCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	provider, _ := domain.ParseProvider(chi.URLParam(r, "provider"))
	providerLabel := strings.ToLower(string(provider))
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "social_callback", status, time.Since(start))
	}()

	state, popup, stateOK := h.consumeState(w, r)
	fail := func(reason, code, message string) {
		status = "failure"
		observability.Audit(r, "auth.social.callback.failed", "provider", providerLabel, "reason", reason)
		observability.RecordAuthLogin(r.Context(), providerLabel, "failure")
		h.delivery.Deliver(w, r, Delivery{Kind: DeliverError, Popup: popup, Provider: provider, ErrorCode: code, Message: message})
	}

	if !provider.Social() {
		fail("unknown_provider", "NOT_FOUND", "unknown oauth provider")
		return
	}
	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		fail("provider_denied", "ACCESS_DENIED", "sign-in was cancelled")
		return
	}
	if q.Get("state") == "" || q.Get("code") == "" {
		fail("missing_code_or_state", "BAD_REQUEST", "missing state or code")
		return
	}
	if !stateOK || state != q.Get("state") {
		fail("invalid_state", "UNAUTHORIZED", "invalid oauth state")
		return
	}

	result, err := h.authSvc.HandleSocialCallback(r.Context(), provider, q.Get("code"))
	var existing *service.ExistingAccountError
	switch {
	case errors.As(err, &existing):
		status = "existing_account"
		observability.Audit(r, "auth.social.existing_account",
			"provider", providerLabel,
			"email", existing.MaskedEmail,
			"channels", strings.Join(existing.Channels(), ","),
		)
		observability.RecordAuthLogin(r.Context(), providerLabel, "existing_account")
		h.delivery.Deliver(w, r, Delivery{Kind: DeliverExistingAccount, Popup: popup, Provider: provider, Existing: existing})
		return
	case err != nil:
		_, code := classify(err)
		fail("reconcile", code, callbackErrorMessage(err, code))
		return
	}

	switch result.Outcome {
	case service.CallbackSignupRequired:
		status = "signup_required"
		observability.Audit(r, "auth.social.signup_required", "provider", providerLabel, "email", service.MaskEmail(result.Profile.Email))
		observability.RecordAuthLogin(r.Context(), providerLabel, "signup_required")
		h.delivery.Deliver(w, r, Delivery{
			Kind:        DeliverSignupRequired,
			Popup:       popup,
			Provider:    provider,
			SignupToken: result.SignupToken,
			Profile:     result.Profile,
		})
	default:
		observability.Audit(r, "auth.login.success", "user_id", result.User.ID, "provider", providerLabel)
		observability.RecordAuthLogin(r.Context(), providerLabel, "success")
		h.delivery.Deliver(w, r, Delivery{
			Kind:     DeliverLogin,
			Popup:    popup,
			Provider: provider,
			User:     result.User,
			Tokens:   result.Tokens,
		})
	}
}

// consumeState reads and clears the state cookie. The popup flag is trusted
// only when the signature verifies.
func (h *AuthHandler) consumeState(w http.ResponseWriter, r *http.Request) (string, bool, bool) {
	raw := security.GetCookie(r, security.StateCookieName)
	if raw == "" {
		return "", false, false
	}
	h.cookieMgr.ClearStateCookie(w)
	payload, ok := security.VerifySignedState(raw, h.stateKey)
	if !ok {
		return "", false, false
	}
	state, mode, found := strings.Cut(payload, ":")
	if !found || state == "" {
		return "", false, false
	}
	return state, mode == popupMode, true
}

func callbackErrorMessage(err error, code string) string {
	switch code {
	case "INTERNAL":
		return "sign-in failed"
	case "RETRYABLE":
		return "sign-in timed out, try again"
	default:
		return err.Error()
	}
}

// PendingSignup returns the provider profile sealed in the signup cookie so
// the registration page can prefill it.
func (h *AuthHandler) PendingSignup(w http.ResponseWriter, r *http.Request) {
	token := security.GetCookie(r, security.SignupCookieName)
	if token == "" {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "no pending social signup", nil)
		return
	}
	profile, err := h.authSvc.PendingSignup(token)
	if err != nil {
		h.cookieMgr.ClearSignupCookie(w)
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

func (h *AuthHandler) CompleteSocial(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "social_complete", status, time.Since(start))
	}()

	token := security.GetCookie(r, security.SignupCookieName)
	if token == "" {
		status = "failure"
		observability.Audit(r, "auth.social.complete.failed", "reason", "missing_signup_cookie")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "no pending social signup", nil)
		return
	}
	var req socialCompleteRequest
	if !bindJSON(w, r, &req) {
		status = "failure"
		return
	}
	result, err := h.authSvc.CompleteSocialRegistration(r.Context(), token, req.form())
	if err != nil {
		status = "failure"
		if errors.Is(err, service.ErrAlreadyRegistered) || errors.Is(err, service.ErrInvalidToken) {
			h.cookieMgr.ClearSignupCookie(w)
		}
		observability.Audit(r, "auth.social.complete.failed", "reason", errorReason(err))
		writeServiceError(w, r, err)
		return
	}
	h.cookieMgr.ClearSignupCookie(w)
	h.cookieMgr.SetSessionCookies(w, result.Tokens.AccessToken, h.accessTTL, result.Tokens.RefreshToken, h.refreshTTL)
	observability.Audit(r, "auth.register.success", "user_id", result.User.ID, "provider", strings.ToLower(string(result.User.Provider)), "role", result.User.Role)
	response.JSON(w, r, http.StatusCreated, result)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "register", status, time.Since(start))
	}()

	var req registerRequest
	if !bindJSON(w, r, &req) {
		status = "failure"
		return
	}
	result, err := h.authSvc.RegisterLocal(r.Context(), service.LocalRegistrationForm{
		RegistrationForm: req.form(),
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
	})
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.register.failed", "provider", "normal", "reason", errorReason(err))
		writeServiceError(w, r, err)
		return
	}
	h.cookieMgr.SetSessionCookies(w, result.Tokens.AccessToken, h.accessTTL, result.Tokens.RefreshToken, h.refreshTTL)
	observability.Audit(r, "auth.register.success", "user_id", result.User.ID, "provider", "normal", "role", result.User.Role)
	response.JSON(w, r, http.StatusCreated, result)
}

// Login is the password path. It issues a single access token; password
// sessions do not get a refresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var req loginRequest
	if !bindJSON(w, r, &req) {
		status = "failure"
		observability.RecordAuthLogin(r.Context(), "normal", "failure")
		return
	}
	result, err := h.authSvc.LoginWithPassword(r.Context(), req.identifier(), req.Password, clientIP(r))
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.login.failed", "provider", "normal", "reason", errorReason(err))
		observability.RecordAuthLogin(r.Context(), "normal", errorReason(err))
		writeServiceError(w, r, err)
		return
	}
	h.cookieMgr.SetSessionCookies(w, result.Token.Token, h.accessTTL, "", 0)
	observability.Audit(r, "auth.login.success", "user_id", result.User.ID, "provider", "normal")
	observability.RecordAuthLogin(r.Context(), "normal", "success")
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "refresh", status, time.Since(start))
	}()

	refresh := security.GetCookie(r, security.RefreshCookieName)
	if refresh == "" && hasBody(r) {
		var req refreshRequest
		if !bindOptionalJSON(w, r, &req) {
			status = "failure"
			observability.RecordAuthRefresh(r.Context(), "failure")
			return
		}
		refresh = strings.TrimSpace(req.RefreshToken)
	}
	if refresh == "" {
		status = "failure"
		observability.Audit(r, "auth.refresh.failed", "reason", "missing_refresh_token")
		observability.RecordAuthRefresh(r.Context(), "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token", nil)
		return
	}
	result, err := h.authSvc.Refresh(r.Context(), refresh)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.refresh.failed", "reason", errorReason(err))
		observability.RecordAuthRefresh(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}
	h.cookieMgr.SetSessionCookies(w, result.Tokens.AccessToken, h.accessTTL, result.Tokens.RefreshToken, h.refreshTTL)
	observability.Audit(r, "auth.refresh.success", "user_id", result.User.ID)
	observability.RecordAuthRefresh(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, result)
}

// Logout only clears cookies. Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookieMgr.ClearSessionCookies(w)
	h.cookieMgr.ClearSignupCookie(w)
	observability.Audit(r, "auth.logout")
	observability.RecordAuthLogout(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "username is required", nil)
		return
	}
	ok, err := h.authSvc.UsernameAvailable(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"available": ok})
}

func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required", nil)
		return
	}
	ok, err := h.authSvc.EmailAvailable(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"available": ok})
}

// errorReason is a low-cardinality label for audit lines and metrics.
func errorReason(err error) string {
	_, code := classify(err)
	return strings.ToLower(code)
}
