package observability

import (
	"testing"
	"time"
)

func TestMetricsRecordRequestTracksLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 70*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 500, 10*time.Millisecond)

	count, latency := m.RequestStats("/api/tickets", "GET", 200)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if latency != 100*time.Millisecond {
		t.Errorf("latency = %v, want 100ms", latency)
	}
	if count, _ = m.RequestStats("/api/tickets", "GET", 500); count != 1 {
		t.Errorf("500 count = %d, want 1", count)
	}
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/x", "GET", 200, time.Millisecond)
	m.RecordError("/x", "GET", "INTERNAL_ERROR")
	if count, latency := m.RequestStats("/x", "GET", 200); count != 0 || latency != 0 {
		t.Errorf("nil metrics must report zeros")
	}
}
