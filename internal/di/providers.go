package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vetmatch/identity/internal/app"
	"github.com/vetmatch/identity/internal/config"
	"github.com/vetmatch/identity/internal/database"
	"github.com/vetmatch/identity/internal/health"
	"github.com/vetmatch/identity/internal/http/handler"
	"github.com/vetmatch/identity/internal/http/middleware"
	"github.com/vetmatch/identity/internal/http/router"
	"github.com/vetmatch/identity/internal/observability"
	"github.com/vetmatch/identity/internal/repository"
	"github.com/vetmatch/identity/internal/security"
	"github.com/vetmatch/identity/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewSocialAccountRepository,
	repository.NewProfileRepository,
	repository.NewRegistrationStore,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
)

var ServiceSet = wire.NewSet(
	provideTokenService,
	provideCredentialGuard,
	service.NewOAuthProviders,
	provideOAuthService,
	service.NewIdentityService,
	provideAuthService,
	provideLifecycleService,
	service.NewUserService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.LifecycleServiceInterface), new(*service.LifecycleService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	wire.Bind(new(service.TokenVerifier), new(*service.TokenService)),
)

var HTTPSet = wire.NewSet(
	provideSessionDelivery,
	provideAuthHandler,
	provideAccountHandler,
	handler.NewUserHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRecoveryRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	logger := observability.InitLogger(cfg, runtime.LoggerProvider)
	slog.SetDefault(logger)
	return logger
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// provideRedisClient returns nil when Redis is disabled; every consumer falls
// back to an in-process implementation.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RateLimitRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideTokenService(cfg *config.Config, jwt *security.JWTManager) *service.TokenService {
	return service.NewTokenService(jwt, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, cfg.AuthSignupTTL)
}

func provideCredentialGuard(cfg *config.Config, redisClient redis.UniversalClient) service.CredentialGuard {
	policy := service.GuardPolicy{
		FreeAttempts: cfg.AuthGuardFreeAttempts,
		BaseDelay:    cfg.AuthGuardBaseDelay,
		Multiplier:   2,
		MaxDelay:     cfg.AuthGuardMaxDelay,
		ResetWindow:  cfg.AuthGuardResetWindow,
	}
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		return service.NewRedisCredentialGuard(redisClient, cfg.AuthGuardRedisPrefix, policy)
	}
	return service.NewInMemoryCredentialGuard(policy)
}

func provideOAuthService(cfg *config.Config, providers service.OAuthProviders) *service.OAuthService {
	return service.NewOAuthService(providers, cfg.OAuthRequestTimeout)
}

func provideAuthService(
	cfg *config.Config,
	oauthSvc *service.OAuthService,
	identitySvc *service.IdentityService,
	tokenSvc *service.TokenService,
	userRepo repository.UserRepository,
	guard service.CredentialGuard,
	logger *slog.Logger,
) *service.AuthService {
	return service.NewAuthService(cfg.AuthLocalEnabled, oauthSvc, identitySvc, tokenSvc, userRepo, guard, logger)
}

func provideLifecycleService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	tokenSvc *service.TokenService,
	guard service.CredentialGuard,
	logger *slog.Logger,
) *service.LifecycleService {
	return service.NewLifecycleService(userRepo, tokenSvc, guard, cfg.RecoveryWindow, logger)
}

func provideSessionDelivery(cfg *config.Config, cookieMgr *security.CookieManager) handler.SessionDelivery {
	return handler.NewBrowserSessionDelivery(cookieMgr, cfg.FrontendURL, cfg.FrontendOrigin(), cfg.JWTAccessTTL, cfg.JWTRefreshTTL, cfg.AuthSignupTTL)
}

func provideAuthHandler(cfg *config.Config, authSvc service.AuthServiceInterface, delivery handler.SessionDelivery, cookieMgr *security.CookieManager) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, delivery, cookieMgr, cfg.StateSigningSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func provideAccountHandler(cfg *config.Config, lifecycleSvc service.LifecycleServiceInterface, cookieMgr *security.CookieManager) *handler.AccountHandler {
	return handler.NewAccountHandler(lifecycleSvc, cookieMgr, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, cfg.RecoveryWindow)
}

// scopedRateLimiter picks the Redis fixed window when Redis is enabled and
// in-process token buckets otherwise.
func scopedRateLimiter(cfg *config.Config, redisClient redis.UniversalClient, scope string, perMin int) func(http.Handler) http.Handler {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		mode := middleware.FailOpen
		if cfg.RateLimitFailClosed {
			mode = middleware.FailClosed
		}
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":"+scope)
		return middleware.NewDistributedRateLimiter(redisLimiter, perMin, time.Minute, mode, scope).Middleware()
	}
	return middleware.NewRateLimiter(perMin, time.Minute, scope).Middleware()
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	return scopedRateLimiter(cfg, redisClient, "api", cfg.APIRateLimitPerMin)
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	return scopedRateLimiter(cfg, redisClient, "auth", cfg.AuthRateLimitPerMin)
}

func provideRecoveryRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.RecoveryRateLimiterFunc {
	return scopedRateLimiter(cfg, redisClient, "recover", cfg.RecoveryRateLimitPerMin)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	accountHandler *handler.AccountHandler,
	userHandler *handler.UserHandler,
	verifier service.TokenVerifier,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	recoveryRateLimiter router.RecoveryRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:          authHandler,
		AccountHandler:       accountHandler,
		UserHandler:          userHandler,
		TokenVerifier:        verifier,
		CORSOrigins:          cfg.CORSAllowedOrigins,
		APIRateLimitRPM:      cfg.APIRateLimitPerMin,
		AuthRateLimitRPM:     cfg.AuthRateLimitPerMin,
		RecoveryRateLimitRPM: cfg.RecoveryRateLimitPerMin,
		GlobalRateLimiter:    globalRateLimiter,
		AuthRateLimiter:      authRateLimiter,
		RecoveryRateLimiter:  recoveryRateLimiter,
		Readiness:            readiness,
		RequestTimeout:       cfg.RequestTimeout,
		EnableOTelHTTP:       cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod,
		health.NewIdentityStoreChecker(db),
		health.NewGuardStoreChecker(redisClient),
	)
}
