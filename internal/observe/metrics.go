// Package observe provides observability primitives for vaani:
// OpenTelemetry metrics, tracing, trace-aware logging, and HTTP middleware
// for the health and metrics listener.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them to a Prometheus exporter so they can be scraped from
// /metrics. Tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all vaani metrics.
const meterName = "github.com/MrWong99/vaani"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// CaptureDuration tracks command capture time. Use with attribute:
	//   attribute.String("outcome", ...)
	CaptureDuration metric.Float64Histogram

	// ResolveDuration tracks intent resolution latency.
	ResolveDuration metric.Float64Histogram

	// LLMDuration tracks generative fallback latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed voice turns. Use with attribute:
	//   attribute.String("result", ...)
	Turns metric.Int64Counter

	// WakeDetections counts wake word hits. Use with attribute:
	//   attribute.String("word", ...)
	WakeDetections metric.Int64Counter

	// CaptureOutcomes counts command captures. Use with attribute:
	//   attribute.String("outcome", ...)
	CaptureOutcomes metric.Int64Counter

	// IntentResolutions counts resolver decisions. Use with attributes:
	//   attribute.String("source", ...), attribute.Bool("resolved", ...)
	IntentResolutions metric.Int64Counter

	// Dispatches counts handled intents. Use with attribute:
	//   attribute.String("tag", ...)
	Dispatches metric.Int64Counter

	// FallbackCalls counts generative fallback invocations. Use with attribute:
	//   attribute.String("status", ...)
	FallbackCalls metric.Int64Counter

	// ProviderRequests counts provider calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks health and metrics listener requests. Use
	// with attributes:
	//   attribute.String("route", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for voice
// turn latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.CaptureDuration, "vaani.capture.duration", "Time spent capturing a command utterance."},
		{&met.ResolveDuration, "vaani.resolve.duration", "Latency of intent resolution."},
		{&met.LLMDuration, "vaani.llm.duration", "Latency of the generative fallback."},
		{&met.TTSDuration, "vaani.tts.duration", "Latency of speech synthesis."},
	}
	for _, h := range histograms {
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.Turns, "vaani.turns", "Total voice turns by result."},
		{&met.WakeDetections, "vaani.wake.detections", "Total wake word detections by word."},
		{&met.CaptureOutcomes, "vaani.capture.outcomes", "Total command captures by outcome."},
		{&met.IntentResolutions, "vaani.intent.resolutions", "Total intent resolutions by source and gate result."},
		{&met.Dispatches, "vaani.dispatches", "Total dispatched intents by tag."},
		{&met.FallbackCalls, "vaani.fallback.calls", "Total generative fallback calls by status."},
		{&met.ProviderRequests, "vaani.provider.requests", "Total provider requests by provider, kind, and status."},
		{&met.ProviderErrors, "vaani.provider.errors", "Total provider errors by provider and kind."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("vaani.http.request.duration",
		metric.WithDescription("Health and metrics listener latency by route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTurn counts a finished voice turn.
func (m *Metrics) RecordTurn(ctx context.Context, result string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordWake counts a wake word detection.
func (m *Metrics) RecordWake(ctx context.Context, word string) {
	m.WakeDetections.Add(ctx, 1, metric.WithAttributes(attribute.String("word", word)))
}

// RecordCapture counts a command capture and records how long it took.
func (m *Metrics) RecordCapture(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.CaptureOutcomes.Add(ctx, 1, attrs)
	m.CaptureDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordResolution counts a resolver decision and records its latency.
func (m *Metrics) RecordResolution(ctx context.Context, source string, resolved bool, d time.Duration) {
	m.IntentResolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("resolved", resolved),
	))
	m.ResolveDuration.Record(ctx, d.Seconds())
}

// RecordDispatch counts a handled intent.
func (m *Metrics) RecordDispatch(ctx context.Context, tag string) {
	m.Dispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("tag", tag)))
}

// RecordFallback counts a generative fallback call and records its latency.
func (m *Metrics) RecordFallback(ctx context.Context, status string, d time.Duration) {
	m.FallbackCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.LLMDuration.Record(ctx, d.Seconds())
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
