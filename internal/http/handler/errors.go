package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/service"
)

// classify maps a service error to its HTTP status and envelope code.
func classify(err error) (int, string) {
	var (
		existing  *service.ExistingAccountError
		throttled *service.ThrottledError
	)
	switch {
	case errors.As(err, &existing):
		return http.StatusConflict, "EXISTING_ACCOUNT"
	case errors.As(err, &throttled):
		return http.StatusTooManyRequests, "TOO_MANY_REQUESTS"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, service.ErrGone):
		return http.StatusGone, "GONE"
	case service.IsRetryable(err):
		return http.StatusServiceUnavailable, "RETRYABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeServiceError renders err in the JSON envelope. Internal causes are
// logged and never echoed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	var details any

	var (
		existing  *service.ExistingAccountError
		throttled *service.ThrottledError
		invalid   *service.ValidationError
	)
	switch {
	case errors.As(err, &existing):
		details = map[string]any{
			"email":     existing.MaskedEmail,
			"channels":  existing.Channels(),
			"attempted": strings.ToLower(string(existing.AttemptedProvider)),
			"redirect":  ExistingAccountPath(existing),
		}
	case errors.As(err, &throttled):
		seconds := int(math.Ceil(throttled.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
		details = map[string]int{"retry_after_seconds": max(seconds, 1)}
	case errors.As(err, &invalid):
		details = map[string]string{"field": invalid.Field}
		message = invalid.Message
	}

	switch code {
	case "RETRYABLE":
		w.Header().Set("Retry-After", "1")
		slog.WarnContext(r.Context(), "retryable request failure", "path", r.URL.Path, "error", err.Error())
		message = "temporarily unavailable, retry the request"
	case "INTERNAL":
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
		message = "internal error"
	}
	response.Error(w, r, status, code, message, details)
}
