package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/observability"
)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	ResetAt    time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
	backend string
}

// NewRateLimiter limits per client IP with in-process token buckets.
func NewRateLimiter(limit int, window time.Duration, scope string) *RateLimiter {
	rl := NewDistributedRateLimiter(NewLocalTokenBucketLimiter(), limit, window, FailClosed, scope)
	rl.backend = "local"
	return rl
}

func NewDistributedRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
		mode:    mode,
		scope:   scope,
		backend: "redis",
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.scope + ":" + clientIPKey(r)
			d, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				if rl.mode == FailOpen {
					observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error_allowed", rl.backend)
					slog.WarnContext(r.Context(), "rate limiter backend unavailable, allowing request",
						"scope", rl.scope,
						"mode", string(rl.mode),
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error_denied", rl.backend)
				w.Header().Set("Retry-After", retryAfterHeader(rl.window))
				response.Error(w, r, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests", nil)
				return
			}
			rl.writeHeaders(w, d)
			if !d.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "denied", rl.backend)
				w.Header().Set("Retry-After", retryAfterHeader(d.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allowed", rl.backend)
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) writeHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))
	if !d.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localTokenBucketLimiter refills limit tokens per window, with a burst of
// limit. Idle buckets are swept once per window.
type localTokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	sweepAt time.Time
	now     func() time.Time
}

func NewLocalTokenBucketLimiter() Limiter {
	return newLocalTokenBucketLimiter(time.Now)
}

func newLocalTokenBucketLimiter(now func() time.Time) *localTokenBucketLimiter {
	return &localTokenBucketLimiter{buckets: make(map[string]*bucket), now: now}
}

func (l *localTokenBucketLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > window {
				delete(l.buckets, k)
			}
		}
		l.sweepAt = now.Add(window)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay, ResetAt: now.Add(delay)}, nil
	}
	remaining := int(b.limiter.TokensAt(now))
	return Decision{Allowed: true, Remaining: remaining, ResetAt: now.Add(window)}, nil
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	return r.RemoteAddr
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
