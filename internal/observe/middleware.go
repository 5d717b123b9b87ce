package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Routes of the health and metrics listener. Any other path is reported as
// routeOther so that scanners cannot grow the metric's label set.
const (
	RouteHealthz = "/healthz"
	RouteReadyz  = "/readyz"
	RouteMetrics = "/metrics"
	routeOther   = "other"
)

func route(path string) string {
	switch path {
	case RouteHealthz, RouteReadyz, RouteMetrics:
		return path
	}
	return routeOther
}

// statusWriter remembers the first status code written downstream.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status, w.wrote = code, true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// Middleware traces and times requests to the health and metrics listener.
//
// A W3C traceparent sent by the caller is continued, and the trace ID is
// echoed in X-Correlation-ID. Durations are recorded to
// [Metrics.HTTPRequestDuration] by route and status. Successful probes and
// scrapes arrive every few seconds and are logged at debug level; client
// errors are logged at warn and server errors (an unready /readyz) also
// mark the span as failed.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rt := route(r.URL.Path)

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "http "+rt,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRoute(rt),
				),
			)
			defer span.End()

			if cid := CorrelationID(ctx); cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			elapsed := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("route", rt),
					attribute.Int("status", sw.status),
				),
			)
			span.SetAttributes(semconv.HTTPResponseStatusCode(sw.status))

			level := slog.LevelDebug
			switch {
			case sw.status >= http.StatusInternalServerError:
				level = slog.LevelWarn
				span.SetStatus(codes.Error, http.StatusText(sw.status))
			case sw.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			Logger(ctx).LogAttrs(ctx, level, "http request",
				slog.String("route", rt),
				slog.String("method", r.Method),
				slog.Int("status", sw.status),
				slog.Duration("duration", elapsed),
			)
		})
	}
}
