package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vetmatch/identity/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/vetmatch/identity"

type AppMetrics struct {
	authLoginCounter             metric.Int64Counter
	authRefreshCounter           metric.Int64Counter
	authLogoutCounter            metric.Int64Counter
	authReqDuration              metric.Float64Histogram
	accessTokenValidationCounter metric.Int64Counter
	reconcileCounter             metric.Int64Counter
	registrationCounter          metric.Int64Counter
	lifecycleCounter             metric.Int64Counter
	oauthReqDuration             metric.Float64Histogram
	oauthErrorsCounter           metric.Int64Counter
	rateLimitDecisionCounter     metric.Int64Counter
	middlewareValidationCounter  metric.Int64Counter
	repositoryOpsCounter         metric.Int64Counter
	healthCheckResultCounter     metric.Int64Counter
	healthCheckDuration          metric.Float64Histogram
	toolCommandRuns              metric.Int64Counter
	toolCommandDuration          metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	latencyBuckets := sdkmetric.Stream{
		Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(
			sdkmetric.NewView(sdkmetric.Instrument{Name: "auth.request.duration"}, latencyBuckets),
			sdkmetric.NewView(sdkmetric.Instrument{Name: "auth.oauth.request.duration"}, latencyBuckets),
		),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m    AppMetrics
		errs []error
	)
	counter := func(name string) metric.Int64Counter {
		c, err := meter.Int64Counter(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("counter %s: %w", name, err))
		}
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithUnit("s"), metric.WithDescription(desc))
		if err != nil {
			errs = append(errs, fmt.Errorf("histogram %s: %w", name, err))
		}
		return h
	}

	m.authLoginCounter = counter("auth.login.attempts")
	m.authRefreshCounter = counter("auth.refresh.attempts")
	m.authLogoutCounter = counter("auth.logout.attempts")
	m.authReqDuration = seconds("auth.request.duration", "Duration of auth endpoint requests in seconds")
	m.accessTokenValidationCounter = counter("auth.access_token.validation.events")
	m.reconcileCounter = counter("identity.reconcile.outcomes")
	m.registrationCounter = counter("identity.registration.events")
	m.lifecycleCounter = counter("account.lifecycle.events")
	m.oauthReqDuration = seconds("auth.oauth.request.duration", "Duration of OAuth provider round trips in seconds")
	m.oauthErrorsCounter = counter("auth.oauth.errors")
	m.rateLimitDecisionCounter = counter("http.rate_limit.decisions")
	m.middlewareValidationCounter = counter("http.middleware.validation.events")
	m.repositoryOpsCounter = counter("repository.operations")
	m.healthCheckResultCounter = counter("health.check.results")
	m.healthCheckDuration = seconds("health.check.duration", "Duration of health dependency checks in seconds")
	m.toolCommandRuns = counter("tool.command.runs")
	m.toolCommandDuration = seconds("tool.command.duration", "Duration of CLI tool commands in seconds")

	if len(errs) > 0 {
		return nil, errs[0]
	}
	return &m, nil
}

func loadMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, provider, status string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

func RecordAuthRefresh(ctx context.Context, status string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.authRefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthLogout(ctx context.Context, status string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.authReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.accessTokenValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

// RecordReconcileOutcome counts social-login resolutions. outcome is one of
// returning, new_user, existing_account, withdrawn, error.
func RecordReconcileOutcome(ctx context.Context, provider, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.reconcileCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

func RecordRegistrationEvent(ctx context.Context, provider, role, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.registrationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("role", role),
		attribute.String("outcome", outcome),
	))
}

func RecordAccountLifecycleEvent(ctx context.Context, action, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.lifecycleCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordOAuthRequestDuration(ctx context.Context, provider, stage, status string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.oauthReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

func RecordOAuthError(ctx context.Context, provider, reason string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.oauthErrorsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("reason", reason),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
	))
}

func RecordMiddlewareValidationEvent(ctx context.Context, middleware, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.middlewareValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("middleware", middleware),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, repository, operation, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repository),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
}

func RecordToolCommandRun(ctx context.Context, tool, command, status string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("status", status),
	))
}

func RecordToolCommandDuration(ctx context.Context, tool, command, status string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.toolCommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("status", status),
	))
}
