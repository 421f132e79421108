// Package observe provides application-wide observability primitives for
// the charades service: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all charades metrics.
const meterName = "github.com/joshSzep/charades"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// WebhookDuration tracks end-to-end webhook handling latency. Use with
	// attribute: attribute.String("channel", "sms"|"voice").
	WebhookDuration metric.Float64Histogram

	// LLMDuration tracks LLM provider call latency. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("op", ...)
	LLMDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// GameScore tracks the distribution of evaluation scores (0-100).
	GameScore metric.Int64Histogram

	// --- Counters ---

	// ProviderRequests counts LLM provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("op", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts LLM provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("op", ...)
	ProviderErrors metric.Int64Counter

	// GamesStarted counts new game sessions by language.
	GamesStarted metric.Int64Counter

	// GamesCompleted counts completed game sessions by language.
	GamesCompleted metric.Int64Counter

	// OptIns counts successful player opt-ins.
	OptIns metric.Int64Counter

	// OptOuts counts successful player opt-outs.
	OptOuts metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets cover slow LLM round-trips behind the webhook path.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// scoreBuckets covers the 0-100 evaluation score range in steps of ten.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.WebhookDuration, err = m.Float64Histogram("charades.webhook.duration",
		metric.WithDescription("End-to-end webhook handling latency by channel."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("charades.llm.duration",
		metric.WithDescription("Latency of LLM provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("charades.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.GameScore, err = m.Int64Histogram("charades.game.score",
		metric.WithDescription("Distribution of evaluation scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("charades.provider.requests",
		metric.WithDescription("Total LLM provider requests by provider, op, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("charades.provider.errors",
		metric.WithDescription("Total LLM provider errors by provider and op."),
	); err != nil {
		return nil, err
	}
	if met.GamesStarted, err = m.Int64Counter("charades.games.started",
		metric.WithDescription("Total game sessions started by language."),
	); err != nil {
		return nil, err
	}
	if met.GamesCompleted, err = m.Int64Counter("charades.games.completed",
		metric.WithDescription("Total game sessions completed by language."),
	); err != nil {
		return nil, err
	}
	if met.OptIns, err = m.Int64Counter("charades.optins",
		metric.WithDescription("Total successful player opt-ins."),
	); err != nil {
		return nil, err
	}
	if met.OptOuts, err = m.Int64Counter("charades.optouts",
		metric.WithDescription("Total successful player opt-outs."),
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
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// MetricAttrs builds a measurement option from alternating key/value string
// pairs, for callers that record on instruments directly.
func MetricAttrs(kv ...string) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	return metric.WithAttributes(attrs...)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, op, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, op string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("op", op),
		),
	)
}

// RecordGameStarted records a new game session for language.
func (m *Metrics) RecordGameStarted(ctx context.Context, language string) {
	m.GamesStarted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("language", language)),
	)
}

// RecordGameCompleted records a completed session and its score.
func (m *Metrics) RecordGameCompleted(ctx context.Context, language string, score int) {
	m.GamesCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("language", language)),
	)
	m.GameScore.Record(ctx, int64(score),
		metric.WithAttributes(attribute.String("language", language)),
	)
}
