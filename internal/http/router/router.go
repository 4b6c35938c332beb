package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vetmatch/identity/internal/health"
	"github.com/vetmatch/identity/internal/http/handler"
	"github.com/vetmatch/identity/internal/http/middleware"
	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/service"
)

type Dependencies struct {
	AuthHandler          *handler.AuthHandler
	AccountHandler       *handler.AccountHandler
	UserHandler          *handler.UserHandler
	TokenVerifier        service.TokenVerifier
	CORSOrigins          []string
	APIRateLimitRPM      int
	AuthRateLimitRPM     int
	RecoveryRateLimitRPM int
	GlobalRateLimiter    GlobalRateLimiterFunc
	AuthRateLimiter      AuthRateLimiterFunc
	RecoveryRateLimiter  RecoveryRateLimiterFunc
	Readiness            *health.ProbeRunner
	RequestTimeout       time.Duration
	EnableOTelHTTP       bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler
type RecoveryRateLimiterFunc func(http.Handler) http.Handler

const maxBodyBytes = 1 << 20

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))
	if dep.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(dep.RequestTimeout))
	}
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())
	}

	var authLimiter func(http.Handler) http.Handler = dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	var recoveryLimiter func(http.Handler) http.Handler = dep.RecoveryRateLimiter
	if recoveryLimiter == nil {
		recoveryLimiter = middleware.NewRateLimiter(dep.RecoveryRateLimitRPM, time.Minute, "recover").Middleware()
	}
	requireAuth := middleware.AuthMiddleware(dep.TokenVerifier)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter)
			r.Get("/check-username", dep.AuthHandler.CheckUsername)
			r.Get("/check-email", dep.AuthHandler.CheckEmail)
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/refresh", dep.AuthHandler.Refresh)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Get("/social/pending", dep.AuthHandler.PendingSignup)
			r.Post("/social/complete", dep.AuthHandler.CompleteSocial)
			r.Get("/{provider}/login", dep.AuthHandler.SocialLogin)
			r.Get("/{provider}/callback", dep.AuthHandler.SocialCallback)
		})

		r.With(requireAuth).Get("/me", dep.UserHandler.Me)

		r.Route("/account", func(r chi.Router) {
			r.With(requireAuth).Post("/withdraw", dep.AccountHandler.Withdraw)
			r.With(recoveryLimiter).Get("/recover", dep.AccountHandler.CheckRecovery)
			r.With(recoveryLimiter).Post("/recover", dep.AccountHandler.Recover)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
