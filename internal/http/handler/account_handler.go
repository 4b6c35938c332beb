package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/http/middleware"
	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/observability"
	"github.com/vetmatch/identity/internal/security"
	"github.com/vetmatch/identity/internal/service"
)

type AccountHandler struct {
	lifecycleSvc service.LifecycleServiceInterface
	cookieMgr    *security.CookieManager
	accessTTL    time.Duration
	refreshTTL   time.Duration
	window       time.Duration
}

func NewAccountHandler(lifecycleSvc service.LifecycleServiceInterface, cookieMgr *security.CookieManager, accessTTL, refreshTTL, window time.Duration) *AccountHandler {
	return &AccountHandler{
		lifecycleSvc: lifecycleSvc,
		cookieMgr:    cookieMgr,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		window:       window,
	}
}

type withdrawResponse struct {
	DeletedAt time.Time `json:"deleted_at"`
	Message   string    `json:"message"`
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid subject", nil)
		return
	}
	var req withdrawRequest
	if !bindOptionalJSON(w, r, &req) {
		return
	}
	deletedAt, err := h.lifecycleSvc.Withdraw(r.Context(), userID, req.Reason)
	if err != nil {
		observability.Audit(r, "account.withdraw.failed", "user_id", userID, "reason", errorReason(err))
		writeServiceError(w, r, err)
		return
	}
	h.cookieMgr.ClearSessionCookies(w)
	observability.Audit(r, "account.withdraw", "user_id", userID, "has_reason", strings.TrimSpace(req.Reason) != "")
	response.JSON(w, r, http.StatusOK, withdrawResponse{
		DeletedAt: deletedAt,
		Message:   "account withdrawn; it can be recovered with your phone number within " + windowDays(h.window) + " days",
	})
}

// CheckRecovery reports whether a phone number owns a withdrawn account that
// is still inside the recovery window. Identifiers in the answer are masked.
func (h *AccountHandler) CheckRecovery(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "phone is required", nil)
		return
	}
	status, err := h.lifecycleSvc.CheckRecoverable(r.Context(), phone)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "account.recover.check", "phone", service.MaskPhone(phone), "recoverable", status.HasRecoverableAccount)
	response.JSON(w, r, http.StatusOK, status)
}

func (h *AccountHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if !bindJSON(w, r, &req) {
		return
	}
	result, err := h.lifecycleSvc.Recover(r.Context(), req.Phone, req.Password, clientIP(r))
	if err != nil {
		observability.Audit(r, "account.recover.failed", "phone", service.MaskPhone(req.Phone), "reason", errorReason(err))
		writeServiceError(w, r, err)
		return
	}
	h.cookieMgr.SetSessionCookies(w, result.Tokens.AccessToken, h.accessTTL, result.Tokens.RefreshToken, h.refreshTTL)
	observability.Audit(r, "account.recover.success", "user_id", result.User.ID)
	response.JSON(w, r, http.StatusOK, result)
}

func windowDays(window time.Duration) string {
	days := int(window.Hours() / 24)
	if days <= 0 {
		days = 90
	}
	return strconv.Itoa(days)
}
