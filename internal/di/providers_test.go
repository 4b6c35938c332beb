package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vetmatch/identity/internal/config"
	"github.com/vetmatch/identity/internal/service"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func serveFrom(h http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/recover", nil)
	req.RemoteAddr = ip + ":1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999", RequestTimeout: 15 * time.Second}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout != 10*time.Second {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout <= cfg.RequestTimeout {
		t.Fatalf("write timeout %v must outlast the request timeout", srv.WriteTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins:      []string{"http://localhost:3000"},
		AuthRateLimitPerMin:     10,
		RecoveryRateLimitPerMin: 3,
		APIRateLimitPerMin:      100,
		RequestTimeout:          15 * time.Second,
		OTELTracingEnabled:      true,
	}
	dep := provideRouterDependencies(nil, nil, nil, nil, nil, nil, nil, nil, cfg)
	if dep.AuthRateLimitRPM != 10 || dep.RecoveryRateLimitRPM != 3 || dep.APIRateLimitRPM != 100 {
		t.Fatalf("unexpected rate limits: %+v", dep)
	}
	if !dep.EnableOTelHTTP || dep.RequestTimeout != 15*time.Second {
		t.Fatalf("unexpected http settings: %+v", dep)
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
}

func TestProvideRedisClientDisabled(t *testing.T) {
	if c := provideRedisClient(&config.Config{}, nil); c != nil {
		t.Fatal("redis client must be nil when disabled")
	}
}

func TestProvideRedisClientEnabled(t *testing.T) {
	mr := miniredis.RunT(t)
	c := provideRedisClient(&config.Config{RateLimitRedisEnabled: true, RedisAddr: mr.Addr()}, nil)
	if c == nil {
		t.Fatal("expected a redis client when enabled")
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Set(context.Background(), "rl:auth:10.0.0.1", 1, 0).Err(); err != nil {
		t.Fatalf("instrumented client must pass commands through: %v", err)
	}
	if !mr.Exists("rl:auth:10.0.0.1") {
		t.Fatal("expected the key to reach redis")
	}
}

func TestProvideCredentialGuard(t *testing.T) {
	cfg := &config.Config{AuthGuardFreeAttempts: 1, AuthGuardBaseDelay: time.Second, AuthGuardMaxDelay: time.Minute, AuthGuardResetWindow: time.Hour}
	if _, ok := provideCredentialGuard(cfg, nil).(*service.InMemoryCredentialGuard); !ok {
		t.Fatal("expected in-memory guard without redis")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg.RateLimitRedisEnabled = true
	cfg.AuthGuardRedisPrefix = "guard"
	guard := provideCredentialGuard(cfg, client)
	if _, ok := guard.(*service.RedisCredentialGuard); !ok {
		t.Fatalf("expected redis guard, got %T", guard)
	}
	if _, err := guard.RegisterFailure(context.Background(), service.GuardScopeRecover, "01012345678", "10.0.0.1"); err != nil {
		t.Fatalf("register failure: %v", err)
	}
	if len(mr.Keys()) == 0 {
		t.Fatal("expected guard state in redis")
	}
}

func TestProvideRecoveryRateLimiterLocal(t *testing.T) {
	cfg := &config.Config{RecoveryRateLimitPerMin: 2}
	h := provideRecoveryRateLimiter(cfg, nil)(okHandler())
	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if got := serveFrom(h, "10.0.0.1"); got != want {
			t.Fatalf("request %d: expected %d, got %d", i+1, want, got)
		}
	}
	if got := serveFrom(h, "10.0.0.2"); got != http.StatusOK {
		t.Fatalf("other clients keep their own budget, got %d", got)
	}
}

func TestProvideAuthRateLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg := &config.Config{RateLimitRedisEnabled: true, RateLimitRedisPrefix: "rl", AuthRateLimitPerMin: 1}

	h := provideAuthRateLimiter(cfg, client)(okHandler())
	if got := serveFrom(h, "10.0.0.1"); got != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", got)
	}
	if got := serveFrom(h, "10.0.0.1"); got != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", got)
	}
	if len(mr.Keys()) != 1 || mr.Keys()[0] != "rl:auth:auth:10.0.0.1" {
		t.Fatalf("unexpected redis keys %v", mr.Keys())
	}
}

func TestScopedRateLimiterRedisOutage(t *testing.T) {
	cases := []struct {
		name       string
		failClosed bool
		want       int
	}{
		{"fail open by default", false, http.StatusOK},
		{"fail closed when configured", true, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{RateLimitRedisEnabled: true, RateLimitRedisPrefix: "rl", APIRateLimitPerMin: 5, RateLimitFailClosed: tc.failClosed}
			client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
			t.Cleanup(func() { _ = client.Close() })
			h := provideGlobalRateLimiter(cfg, client)(okHandler())
			if got := serveFrom(h, "10.0.0.1"); got != tc.want {
				t.Fatalf("expected %d when redis is unavailable, got %d", tc.want, got)
			}
		})
	}
}

func TestProvideReadinessProbeRunnerSkipsDisabledRedis(t *testing.T) {
	runner := provideReadinessProbeRunner(&config.Config{ReadinessProbeTimeout: time.Second}, nil, nil)
	ready, results := runner.Ready(context.Background())
	if !ready || len(results) != 0 {
		t.Fatalf("expected no checks without dependencies, got ready=%v %+v", ready, results)
	}
}
