package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordScore(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordScore(ctx, 0.002, 0.25, 0.1)
	m.RecordScore(ctx, 0.003, 0.2, 0.08)

	rm := collect(t, reader)
	for _, name := range []string{"scriptlive.score.duration", "scriptlive.wer", "scriptlive.cer"} {
		md := findMetric(rm, name)
		if md == nil {
			t.Errorf("metric %q not recorded", name)
			continue
		}
		hist, ok := md.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Errorf("metric %q is not a float64 histogram", name)
			continue
		}
		var count uint64
		for _, dp := range hist.DataPoints {
			count += dp.Count
		}
		if count != 2 {
			t.Errorf("metric %q count = %d, want 2", name, count)
		}
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFragment(ctx, "tcp")
	m.RecordFragment(ctx, "websocket")
	m.RecordRejected(ctx, "bad_json")
	m.RecordForwardError(ctx)
	m.RecordSessionCompleted(ctx)

	rm := collect(t, reader)
	counters := map[string]int64{
		"scriptlive.fragments.received": 2,
		"scriptlive.frames.rejected":    1,
		"scriptlive.forward.errors":     1,
		"scriptlive.sessions.completed": 1,
	}
	for name, want := range counters {
		md := findMetric(rm, name)
		if md == nil {
			t.Errorf("metric %q not recorded", name)
			continue
		}
		sum, ok := md.Data.(metricdata.Sum[int64])
		if !ok {
			t.Errorf("metric %q is not an int64 sum", name)
			continue
		}
		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
		if total != want {
			t.Errorf("metric %q total = %d, want %d", name, total, want)
		}
	}
}

func TestActiveConnectionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ConnOpened(ctx)
	m.ConnOpened(ctx)
	m.ConnClosed(ctx)

	rm := collect(t, reader)
	md := findMetric(rm, "scriptlive.connections.active")
	if md == nil {
		t.Fatal("active connections metric not recorded")
	}
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("active connections metric is not an int64 sum")
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 1 {
		t.Errorf("active connections = %d, want 1", total)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// Must not panic.
	m.RecordFragment(ctx, "tcp")
	m.RecordRejected(ctx, "x")
	m.RecordScore(ctx, 0, 0, 0)
	m.RecordForwardError(ctx)
	m.RecordSessionCompleted(ctx)
	m.ConnOpened(ctx)
	m.ConnClosed(ctx)
}
