package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
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

// sumValue returns the single data point value of a sum metric, requiring
// exactly one data point.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("metric %q has %d data points, want 1", name, len(sum.DataPoints))
	}
	return sum.DataPoints[0].Value
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"improvd.room.event.duration", m.RoomEventDuration},
		{"improvd.http.request.duration", m.HTTPRequestDuration},
	}
	for _, h := range histograms {
		h.h.Record(ctx, 0.042)
	}

	rm := collect(t, reader)
	for _, h := range histograms {
		met := findMetric(rm, h.name)
		if met == nil {
			t.Errorf("histogram %q not found after Record", h.name)
			continue
		}
		hist, ok := met.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Errorf("metric %q is not a float64 histogram", h.name)
			continue
		}
		if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
			t.Errorf("histogram %q: unexpected data points %+v", h.name, hist.DataPoints)
		}
	}
}

func TestRecordUtterance(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordUtterance(ctx, "agent")
	m.RecordUtterance(ctx, "agent")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "improvd.transcript.utterances"); got != 2 {
		t.Errorf("utterances = %d, want 2", got)
	}

	met := findMetric(rm, "improvd.transcript.utterances")
	dp := met.Data.(metricdata.Sum[int64]).DataPoints[0]
	if v, ok := dp.Attributes.Value(attribute.Key("speaker")); !ok || v.AsString() != "agent" {
		t.Errorf("speaker attribute = %v, want %q", v, "agent")
	}
}

func TestRecordDiscard(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDiscard(ctx, "user", "duplicate")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "improvd.transcript.discarded"); got != 1 {
		t.Errorf("discarded = %d, want 1", got)
	}

	met := findMetric(rm, "improvd.transcript.discarded")
	dp := met.Data.(metricdata.Sum[int64]).DataPoints[0]
	if v, ok := dp.Attributes.Value(attribute.Key("reason")); !ok || v.AsString() != "duplicate" {
		t.Errorf("reason attribute = %v, want %q", v, "duplicate")
	}
}

func TestRecordCue(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCue(context.Background(), "end scene")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "improvd.cue.detections"); got != 1 {
		t.Errorf("cues = %d, want 1", got)
	}
}

func TestUpDownCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)
	m.ConnectedViews.Add(ctx, 3)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "improvd.active_sessions"); got != 1 {
		t.Errorf("active_sessions = %d, want 1", got)
	}
	if got := sumValue(t, rm, "improvd.connected_views"); got != 3 {
		t.Errorf("connected_views = %d, want 3", got)
	}
}

func TestDefaultMetricsSingleton(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different instances")
	}
}
