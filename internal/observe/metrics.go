// Package observe provides application-wide observability primitives for
// Improvd: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
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

// meterName is the instrumentation scope name used for all Improvd metrics.
const meterName = "github.com/improvlive/improvd"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// RoomEventDuration tracks how long the session pump takes to handle one
	// room event. Use with attribute: attribute.String("kind", ...)
	RoomEventDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// UtterancesAppended counts transcript entries accepted into the show
	// log. Use with attribute: attribute.String("speaker", ...)
	UtterancesAppended metric.Int64Counter

	// FragmentsDiscarded counts transcript fragments rejected before the
	// log. Use with attributes:
	//   attribute.String("speaker", ...), attribute.String("reason", ...)
	FragmentsDiscarded metric.Int64Counter

	// CuesDetected counts end-of-scene cues heard in player speech. Use with
	// attribute: attribute.String("phrase", ...)
	CuesDetected metric.Int64Counter

	// RoundsCompleted counts improv rounds that received a host reaction.
	RoundsCompleted metric.Int64Counter

	// ShowsCompleted counts shows that reached their closing summary.
	ShowsCompleted metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live show sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ConnectedViews tracks the number of websocket viewers across all
	// sessions.
	ConnectedViews metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for event-handling and HTTP latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RoomEventDuration, err = m.Float64Histogram("improvd.room.event.duration",
		metric.WithDescription("Latency of handling one room event by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("improvd.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.UtterancesAppended, err = m.Int64Counter("improvd.transcript.utterances",
		metric.WithDescription("Total transcript entries accepted by speaker."),
	); err != nil {
		return nil, err
	}
	if met.FragmentsDiscarded, err = m.Int64Counter("improvd.transcript.discarded",
		metric.WithDescription("Total transcript fragments rejected by speaker and reason."),
	); err != nil {
		return nil, err
	}
	if met.CuesDetected, err = m.Int64Counter("improvd.cue.detections",
		metric.WithDescription("Total end-of-scene cues detected by phrase."),
	); err != nil {
		return nil, err
	}
	if met.RoundsCompleted, err = m.Int64Counter("improvd.game.rounds",
		metric.WithDescription("Total improv rounds completed."),
	); err != nil {
		return nil, err
	}
	if met.ShowsCompleted, err = m.Int64Counter("improvd.game.shows",
		metric.WithDescription("Total shows that reached the closing summary."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("improvd.active_sessions",
		metric.WithDescription("Number of live show sessions."),
	); err != nil {
		return nil, err
	}
	if met.ConnectedViews, err = m.Int64UpDownCounter("improvd.connected_views",
		metric.WithDescription("Number of connected websocket viewers across all sessions."),
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

// RecordUtterance is a convenience method that records an accepted transcript
// entry for the given speaker.
func (m *Metrics) RecordUtterance(ctx context.Context, speaker string) {
	m.UtterancesAppended.Add(ctx, 1,
		metric.WithAttributes(attribute.String("speaker", speaker)),
	)
}

// RecordDiscard is a convenience method that records a rejected transcript
// fragment with the standard attribute set.
func (m *Metrics) RecordDiscard(ctx context.Context, speaker, reason string) {
	m.FragmentsDiscarded.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("speaker", speaker),
			attribute.String("reason", reason),
		),
	)
}

// RecordCue is a convenience method that records a detected end-of-scene cue.
func (m *Metrics) RecordCue(ctx context.Context, phrase string) {
	m.CuesDetected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("phrase", phrase)),
	)
}
