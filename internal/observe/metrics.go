// Package observe provides observability primitives for the scriptlive
// monitor: OpenTelemetry metrics with a Prometheus exporter bridge so the
// usual /metrics endpoint keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scriptlive metrics.
const meterName = "github.com/hangulab/scriptlive"

// Metrics holds all OpenTelemetry metric instruments for the monitor.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// ScoreDuration tracks one full engine pass (normalize, align,
	// classify, metrics) over the accumulated hypothesis.
	ScoreDuration metric.Float64Histogram

	// FragmentsReceived counts transcript fragments accepted for scoring.
	// Use with attribute.String("transport", "tcp"|"websocket").
	FragmentsReceived metric.Int64Counter

	// FramesRejected counts ingest frames dropped before scoring (bad
	// framing, undecodable JSON, empty text). Use with
	// attribute.String("reason", ...).
	FramesRejected metric.Int64Counter

	// ForwardErrors counts failed pushes to the downstream caption sink.
	ForwardErrors metric.Int64Counter

	// SessionsCompleted counts scoring sessions that reached the end of
	// the script (no pending tokens left).
	SessionsCompleted metric.Int64Counter

	// WordErrorRate and CharErrorRate record the partial rates of each
	// scoring pass as histogram samples.
	WordErrorRate metric.Float64Histogram
	CharErrorRate metric.Float64Histogram

	// ActiveConnections tracks currently open ingest connections.
	ActiveConnections metric.Int64UpDownCounter
}

// durationBuckets are histogram boundaries (seconds) sized for an engine
// pass that runs every few hundred milliseconds.
var durationBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// rateBuckets are histogram boundaries for error rates; WER can exceed 1
// when the hypothesis drifts badly.
var rateBuckets = []float64{
	0, 0.01, 0.025, 0.05, 0.1, 0.2, 0.35, 0.5, 0.75, 1, 1.5, 2,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ScoreDuration, err = m.Float64Histogram("scriptlive.score.duration",
		metric.WithDescription("Duration of one engine scoring pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FragmentsReceived, err = m.Int64Counter("scriptlive.fragments.received",
		metric.WithDescription("Transcript fragments accepted, by transport."),
	); err != nil {
		return nil, err
	}
	if met.FramesRejected, err = m.Int64Counter("scriptlive.frames.rejected",
		metric.WithDescription("Ingest frames dropped before scoring, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ForwardErrors, err = m.Int64Counter("scriptlive.forward.errors",
		metric.WithDescription("Failed pushes to the downstream caption sink."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("scriptlive.sessions.completed",
		metric.WithDescription("Scoring sessions that reached the end of the script."),
	); err != nil {
		return nil, err
	}
	if met.WordErrorRate, err = m.Float64Histogram("scriptlive.wer",
		metric.WithDescription("Partial word error rate per scoring pass."),
		metric.WithExplicitBucketBoundaries(rateBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CharErrorRate, err = m.Float64Histogram("scriptlive.cer",
		metric.WithDescription("Partial character error rate per scoring pass."),
		metric.WithExplicitBucketBoundaries(rateBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveConnections, err = m.Int64UpDownCounter("scriptlive.connections.active",
		metric.WithDescription("Currently open ingest connections."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance backed by the
// global OTel meter provider, creating it on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument creation only fails on invalid names, which are
			// all compile-time constants here.
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordFragment increments the received-fragments counter for a transport.
// All Record helpers are nil-safe so wiring metrics stays optional.
func (m *Metrics) RecordFragment(ctx context.Context, transport string) {
	if m == nil {
		return
	}
	m.FragmentsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", transport)))
}

// RecordRejected increments the rejected-frames counter with a reason.
func (m *Metrics) RecordRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.FramesRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordScore records the duration and rates of one scoring pass.
func (m *Metrics) RecordScore(ctx context.Context, seconds, wer, cer float64) {
	if m == nil {
		return
	}
	m.ScoreDuration.Record(ctx, seconds)
	m.WordErrorRate.Record(ctx, wer)
	m.CharErrorRate.Record(ctx, cer)
}

// RecordForwardError increments the forward-errors counter.
func (m *Metrics) RecordForwardError(ctx context.Context) {
	if m == nil {
		return
	}
	m.ForwardErrors.Add(ctx, 1)
}

// RecordSessionCompleted increments the completed-sessions counter.
func (m *Metrics) RecordSessionCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsCompleted.Add(ctx, 1)
}

// ConnOpened / ConnClosed adjust the active-connections gauge.
func (m *Metrics) ConnOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveConnections.Add(ctx, 1)
}

// ConnClosed decrements the active-connections gauge.
func (m *Metrics) ConnClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveConnections.Add(ctx, -1)
}
