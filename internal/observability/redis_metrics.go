package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentRedisClient installs a command metrics hook on the client shared
// by the rate limiter and the credential guard. Commands are labelled with
// the keyspace they touch so the two stores can be told apart.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	instrumentRedisClient(client, otel.Meter(meterName), logger)
}

func instrumentRedisClient(client redis.UniversalClient, meter metric.Meter, logger *slog.Logger) bool {
	if client == nil {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}
	hook, err := newRedisMetricsHook(meter)
	if err != nil {
		logger.Warn("redis command metrics disabled", "error", err)
		return false
	}
	client.AddHook(hook)
	return true
}

type redisMetricsHook struct {
	commands metric.Int64Counter
	latency  metric.Float64Histogram
}

func newRedisMetricsHook(meter metric.Meter) (*redisMetricsHook, error) {
	commands, err := meter.Int64Counter("redis.command.total", metric.WithDescription("Redis commands sent by the limiter and credential guard"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("redis.command.duration", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &redisMetricsHook{commands: commands, latency: latency}, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.record(ctx, cmd.Name(), redisKeyspace(cmd), err, time.Since(start))
		return err
	}
}

func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		keyspace := "none"
		if len(cmds) > 0 {
			keyspace = redisKeyspace(cmds[0])
		}
		h.record(ctx, "pipeline", keyspace, err, time.Since(start))
		return err
	}
}

func (h *redisMetricsHook) record(ctx context.Context, command, keyspace string, err error, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("command", strings.ToLower(command)),
		attribute.String("keyspace", keyspace),
		attribute.String("status", redisCommandStatus(err)),
	)
	h.commands.Add(ctx, 1, attrs)
	h.latency.Record(ctx, d.Seconds(), attrs)
}

// redisKeyspace is the prefix before the first ':' of the command's first
// key. Unprefixed keys collapse to "none" to keep the label bounded.
func redisKeyspace(cmd redis.Cmder) string {
	args := cmd.Args()
	keyAt := 1
	switch strings.ToLower(cmd.Name()) {
	case "eval", "evalsha", "eval_ro", "evalsha_ro":
		keyAt = 3
	}
	if len(args) <= keyAt {
		return "none"
	}
	key, ok := args[keyAt].(string)
	if !ok {
		return "none"
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "none"
}

func redisCommandStatus(err error) string {
	var netErr net.Error
	switch {
	case err == nil, errors.Is(err, redis.Nil):
		return "ok"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "error"
	}
}
