package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/domain"
)

// Error families. Handlers map each family to one HTTP status.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrGone         = errors.New("gone")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")
	ErrThrottled    = errors.New("too many attempts")
)

var (
	ErrInvalidToken         = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrOAuthCodeRejected    = fmt.Errorf("%w: authorization code rejected by provider", ErrUnauthorized)
	ErrProviderEmailMissing = fmt.Errorf("%w: provider did not share an email address", ErrUnauthorized)
	ErrPasswordRequired     = fmt.Errorf("%w: password required", ErrUnauthorized)

	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrProviderNotEnabled   = fmt.Errorf("%w: oauth provider not enabled", ErrNotFound)
	ErrAccountWithdrawn     = fmt.Errorf("%w: account withdrawn, recovery available by phone", ErrNotFound)
	ErrNoRecoverableAccount = fmt.Errorf("%w: no withdrawn account for phone", ErrNotFound)
	ErrLocalAuthDisabled    = fmt.Errorf("%w: password sign-in disabled", ErrNotFound)

	ErrRecoveryExpired = fmt.Errorf("%w: recovery window has passed", ErrGone)

	ErrAlreadyRegistered = fmt.Errorf("%w: social account already registered", ErrConflict)
	ErrUsernameTaken     = fmt.Errorf("%w: username already in use", ErrConflict)
	ErrPhoneTaken        = fmt.Errorf("%w: phone already in use", ErrConflict)
	ErrEmailTaken        = fmt.Errorf("%w: email already in use", ErrConflict)
	ErrRecoveryConflict  = fmt.Errorf("%w: email or phone now belongs to another account", ErrConflict)
)

// ExistingAccountError reports that the provider email already belongs to an
// active account reached through another channel. It is never resolved by
// linking automatically.
type ExistingAccountError struct {
	Email             string
	MaskedEmail       string
	HasPassword       bool
	LinkedProviders   []domain.Provider
	AttemptedProvider domain.Provider
}

func (e *ExistingAccountError) Error() string {
	return fmt.Sprintf("account for %s already exists (attempted %s)", e.MaskedEmail, e.AttemptedProvider)
}

func (e *ExistingAccountError) Is(target error) bool {
	return target == ErrConflict
}

// Channels lists the ways the existing account can sign in, password first.
func (e *ExistingAccountError) Channels() []string {
	out := make([]string, 0, len(e.LinkedProviders)+1)
	if e.HasPassword {
		out = append(out, strings.ToLower(string(domain.ProviderNormal)))
	}
	for _, p := range e.LinkedProviders {
		out = append(out, strings.ToLower(string(p)))
	}
	return out
}

// ValidationError names the first field that failed a registration rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ThrottledError is returned while a credential guard cooldown is running.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

// InternalError wraps store and provider failures. Retryable is set when the
// cause was a deadline, so callers may try again.
type InternalError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}

func internalError(op string, err error) error {
	return &InternalError{Op: op, Err: err, Retryable: isTimeout(err)}
}

func IsRetryable(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie) && ie.Retryable
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
