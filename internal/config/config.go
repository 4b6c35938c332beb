package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	DatabaseURL    string        `env:"DATABASE_URL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"vetmatch-identity"`
	JWTAudience        string        `env:"JWT_AUDIENCE" envDefault:"vetmatch-api"`
	JWTAccessSecret    string        `env:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret   string        `env:"JWT_REFRESH_SECRET"`
	JWTAccessTTL       time.Duration `env:"JWT_ACCESS_TTL" envDefault:"168h"`
	JWTRefreshTTL      time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	AuthSignupTTL      time.Duration `env:"AUTH_SIGNUP_TTL" envDefault:"30m"`
	StateSigningSecret string        `env:"OAUTH_STATE_SECRET"`
	CookieDomain       string        `env:"COOKIE_DOMAIN"`
	CookieSecure       bool          `env:"COOKIE_SECURE" envDefault:"true"`
	CookieSameSite     string        `env:"COOKIE_SAMESITE" envDefault:"lax"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	GoogleClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/api/v1/auth/google/callback"`
	AuthGoogleEnabled  bool   `env:"AUTH_GOOGLE_ENABLED" envDefault:"false"`

	KakaoClientID     string `env:"KAKAO_OAUTH_CLIENT_ID"`
	KakaoClientSecret string `env:"KAKAO_OAUTH_CLIENT_SECRET"`
	KakaoRedirectURL  string `env:"KAKAO_OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/api/v1/auth/kakao/callback"`
	AuthKakaoEnabled  bool   `env:"AUTH_KAKAO_ENABLED" envDefault:"false"`

	NaverClientID     string `env:"NAVER_OAUTH_CLIENT_ID"`
	NaverClientSecret string `env:"NAVER_OAUTH_CLIENT_SECRET"`
	NaverRedirectURL  string `env:"NAVER_OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/api/v1/auth/naver/callback"`
	AuthNaverEnabled  bool   `env:"AUTH_NAVER_ENABLED" envDefault:"false"`

	AuthLocalEnabled    bool          `env:"AUTH_LOCAL_ENABLED" envDefault:"true"`
	OAuthRequestTimeout time.Duration `env:"OAUTH_REQUEST_TIMEOUT" envDefault:"10s"`
	RecoveryWindow      time.Duration `env:"ACCOUNT_RECOVERY_WINDOW" envDefault:"2160h"`

	AuthRateLimitPerMin     int    `env:"AUTH_RATE_LIMIT_PER_MIN" envDefault:"30"`
	RecoveryRateLimitPerMin int    `env:"RECOVERY_RATE_LIMIT_PER_MIN" envDefault:"10"`
	APIRateLimitPerMin      int    `env:"API_RATE_LIMIT_PER_MIN" envDefault:"120"`
	RateLimitRedisEnabled   bool   `env:"RATE_LIMIT_REDIS_ENABLED" envDefault:"false"`
	RateLimitFailClosed     bool   `env:"RATE_LIMIT_FAIL_CLOSED" envDefault:"false"`
	RateLimitRedisPrefix    string `env:"RATE_LIMIT_REDIS_PREFIX" envDefault:"vetmatch_rl"`
	AuthGuardRedisPrefix    string `env:"AUTH_GUARD_REDIS_PREFIX" envDefault:"vetmatch_guard"`

	AuthGuardFreeAttempts int           `env:"AUTH_GUARD_FREE_ATTEMPTS" envDefault:"5"`
	AuthGuardBaseDelay    time.Duration `env:"AUTH_GUARD_BASE_DELAY" envDefault:"2s"`
	AuthGuardMaxDelay     time.Duration `env:"AUTH_GUARD_MAX_DELAY" envDefault:"5m"`
	AuthGuardResetWindow  time.Duration `env:"AUTH_GUARD_RESET_WINDOW" envDefault:"30m"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ReadinessProbeTimeout        time.Duration `env:"READINESS_PROBE_TIMEOUT" envDefault:"1s"`
	ServerStartGracePeriod       time.Duration `env:"SERVER_START_GRACE_PERIOD" envDefault:"2s"`
	ShutdownTimeout              time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"20s"`
	ShutdownHTTPDrainTimeout     time.Duration `env:"SHUTDOWN_HTTP_DRAIN_TIMEOUT" envDefault:"10s"`
	ShutdownObservabilityTimeout time.Duration `env:"SHUTDOWN_OBSERVABILITY_TIMEOUT" envDefault:"8s"`

	OTELServiceName           string        `env:"OTEL_SERVICE_NAME" envDefault:"vetmatch-identity"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL" envDefault:"10s"`
	OTELTraceSamplingRatio    float64       `env:"OTEL_TRACE_SAMPLING_RATIO" envDefault:"1.0"`
	OTELMetricsEnabled        bool          `env:"OTEL_METRICS_ENABLED" envDefault:"true"`
	OTELTracingEnabled        bool          `env:"OTEL_TRACING_ENABLED" envDefault:"true"`
	OTELLogsEnabled           bool          `env:"OTEL_LOGS_ENABLED" envDefault:"true"`
	OTELLogLevel              string        `env:"OTEL_LOG_LEVEL" envDefault:"info"`
}

// placeholderSecrets are values copied from sample env files that must never
// reach a production deployment.
var placeholderSecrets = []string{
	"changeme",
	"insecure",
	"your-secret-key",
	"your-jwt-secret",
	"development-secret",
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.CookieSameSite = strings.ToLower(strings.TrimSpace(c.CookieSameSite))
	c.OTELLogLevel = strings.ToLower(strings.TrimSpace(c.OTELLogLevel))
	c.FrontendURL = strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")
	origins := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, o := range c.CORSAllowedOrigins {
		if trim := strings.TrimSpace(o); trim != "" {
			origins = append(origins, trim)
		}
	}
	c.CORSAllowedOrigins = origins
	if c.OTELEnvironment == "" {
		c.OTELEnvironment = c.Env
	}
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if len(c.JWTRefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 chars")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if len(c.StateSigningSecret) < 16 {
		errs = append(errs, "OAUTH_STATE_SECRET must be at least 16 chars")
	}
	if !c.AuthLocalEnabled && !c.AuthGoogleEnabled && !c.AuthKakaoEnabled && !c.AuthNaverEnabled {
		errs = append(errs, "at least one auth provider must be enabled")
	}
	errs = append(errs, providerErrors("GOOGLE", c.AuthGoogleEnabled, c.GoogleClientID, c.GoogleClientSecret)...)
	errs = append(errs, providerErrors("KAKAO", c.AuthKakaoEnabled, c.KakaoClientID, c.KakaoClientSecret)...)
	errs = append(errs, providerErrors("NAVER", c.AuthNaverEnabled, c.NaverClientID, c.NaverClientSecret)...)
	if u, err := url.Parse(c.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "FRONTEND_URL must be an absolute URL")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > 7*24*time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 7d")
	}
	if c.JWTRefreshTTL < c.JWTAccessTTL || c.JWTRefreshTTL > 90*24*time.Hour {
		errs = append(errs, "JWT_REFRESH_TTL must be between JWT_ACCESS_TTL and 90d")
	}
	if c.AuthSignupTTL <= 0 || c.AuthSignupTTL > 24*time.Hour {
		errs = append(errs, "AUTH_SIGNUP_TTL must be between 1s and 24h")
	}
	if c.RecoveryWindow <= 0 {
		errs = append(errs, "ACCOUNT_RECOVERY_WINDOW must be > 0")
	}
	if c.OAuthRequestTimeout <= 0 {
		errs = append(errs, "OAUTH_REQUEST_TIMEOUT must be > 0")
	}
	if c.RequestTimeout <= c.OAuthRequestTimeout {
		errs = append(errs, "REQUEST_TIMEOUT must exceed OAUTH_REQUEST_TIMEOUT")
	}
	if c.AuthGuardFreeAttempts < 0 {
		errs = append(errs, "AUTH_GUARD_FREE_ATTEMPTS must be >= 0")
	}
	if c.AuthGuardMaxDelay < c.AuthGuardBaseDelay {
		errs = append(errs, "AUTH_GUARD_MAX_DELAY must be >= AUTH_GUARD_BASE_DELAY")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RecoveryRateLimitPerMin <= 0 {
		errs = append(errs, "RECOVERY_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RateLimitRedisEnabled && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, "REDIS_ADDR is required when RATE_LIMIT_REDIS_ENABLED=true")
	}
	if !isValidSameSite(c.CookieSameSite) {
		errs = append(errs, "COOKIE_SAMESITE must be one of lax, strict, none")
	}
	if c.CookieSameSite == "none" && !c.CookieSecure {
		errs = append(errs, "COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 || c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownObservabilityTimeout <= 0 {
		errs = append(errs, "shutdown timeouts must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must not exceed SHUTDOWN_TIMEOUT")
	}
	if c.IsProduction() {
		errs = append(errs, c.productionErrors()...)
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) productionErrors() []string {
	var errs []string
	if !c.CookieSecure {
		errs = append(errs, "COOKIE_SECURE must be true in production")
	}
	if isPlaceholderSecret(c.JWTAccessSecret) {
		errs = append(errs, "JWT_ACCESS_SECRET must not be a placeholder value in production")
	}
	if isPlaceholderSecret(c.JWTRefreshSecret) {
		errs = append(errs, "JWT_REFRESH_SECRET must not be a placeholder value in production")
	}
	if isPlaceholderSecret(c.StateSigningSecret) {
		errs = append(errs, "OAUTH_STATE_SECRET must not be a placeholder value in production")
	}
	if strings.HasPrefix(c.FrontendURL, "http://") {
		errs = append(errs, "FRONTEND_URL must use https in production")
	}
	return errs
}

func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "production", "prod":
		return true
	default:
		return false
	}
}

// FrontendOrigin returns scheme://host of FrontendURL, used as the postMessage
// target origin.
func (c *Config) FrontendOrigin() string {
	u, err := url.Parse(c.FrontendURL)
	if err != nil {
		return c.FrontendURL
	}
	return u.Scheme + "://" + u.Host
}

func providerErrors(name string, enabled bool, clientID, clientSecret string) []string {
	if !enabled {
		return nil
	}
	var errs []string
	if clientID == "" {
		errs = append(errs, fmt.Sprintf("%s_OAUTH_CLIENT_ID is required when AUTH_%s_ENABLED=true", name, name))
	}
	if clientSecret == "" {
		errs = append(errs, fmt.Sprintf("%s_OAUTH_CLIENT_SECRET is required when AUTH_%s_ENABLED=true", name, name))
	}
	return errs
}

func isPlaceholderSecret(v string) bool {
	lower := strings.ToLower(v)
	for _, p := range placeholderSecrets {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func isValidSameSite(v string) bool {
	switch v {
	case "lax", "strict", "none":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
