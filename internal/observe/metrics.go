// Package observe provides application-wide observability primitives for
// Parley: OpenTelemetry metrics and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
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

// meterName is the instrumentation scope name used for all Parley metrics.
const meterName = "github.com/parley-ai/parley"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per remote operation ---

	// AssistDuration tracks language-assistant request latency (feedback,
	// alternatives, chat replies, memory updates).
	AssistDuration metric.Float64Histogram

	// TranslateDuration tracks translation request latency.
	TranslateDuration metric.Float64Histogram

	// SpeechDuration tracks speech synthesis latency.
	SpeechDuration metric.Float64Histogram

	// --- Counters ---

	// RemoteRequests counts remote API calls. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("status", ...)
	RemoteRequests metric.Int64Counter

	// RemoteErrors counts remote call failures. Use with attribute:
	//   attribute.String("kind", ...)
	RemoteErrors metric.Int64Counter

	// MemorySyncs counts memory synchronization attempts. Use with attribute:
	//   attribute.String("status", ...): one of skipped, succeeded,
	//   unchanged, failed.
	MemorySyncs metric.Int64Counter

	// SpeechCacheHits counts speech playbacks served from the audio cache
	// without a network round trip.
	SpeechCacheHits metric.Int64Counter

	// --- Gauges ---

	// ActiveConversations tracks the number of loaded conversations.
	ActiveConversations metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote LLM and TTS round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AssistDuration, err = m.Float64Histogram("parley.assist.duration",
		metric.WithDescription("Latency of language-assistant requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("parley.translate.duration",
		metric.WithDescription("Latency of translation requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeechDuration, err = m.Float64Histogram("parley.speech.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.RemoteRequests, err = m.Int64Counter("parley.remote.requests",
		metric.WithDescription("Total remote API requests by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.RemoteErrors, err = m.Int64Counter("parley.remote.errors",
		metric.WithDescription("Total remote call failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.MemorySyncs, err = m.Int64Counter("parley.memory.syncs",
		metric.WithDescription("Total memory synchronization attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.SpeechCacheHits, err = m.Int64Counter("parley.speech.cache_hits",
		metric.WithDescription("Speech playbacks served from the audio cache."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveConversations, err = m.Int64UpDownCounter("parley.active_conversations",
		metric.WithDescription("Number of loaded conversations."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("parley.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
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

// RecordRemoteRequest is a convenience method that records a remote request
// counter increment with the standard attribute set.
func (m *Metrics) RecordRemoteRequest(ctx context.Context, kind, status string) {
	m.RemoteRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordRemoteError is a convenience method that records a remote error
// counter increment.
func (m *Metrics) RecordRemoteError(ctx context.Context, kind string) {
	m.RemoteErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordMemorySync is a convenience method that records a memory sync attempt
// with its outcome status.
func (m *Metrics) RecordMemorySync(ctx context.Context, status string) {
	m.MemorySyncs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
