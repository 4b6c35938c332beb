package observability

import (
	"log/slog"
	"net"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// Audit writes one structured audit line for a security-relevant event.
// Callers pass masked identifiers only.
func Audit(r *http.Request, event string, attrs ...any) {
	slog.InfoContext(r.Context(), "audit", auditAttrs(r, event, attrs...)...)
}

func auditAttrs(r *http.Request, event string, attrs ...any) []any {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
		"remote_ip", remoteIP(r),
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		base = append(base, "trace_id", sc.TraceID().String())
	}
	return append(base, attrs...)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
