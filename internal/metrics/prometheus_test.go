package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsEndpoint(t *testing.T) {
	// Touch some metrics so they appear in the output.
	// Vec metrics only show up after WithLabelValues() is called.
	StreamsCompleted.WithLabelValues("ok").Add(0)
	StreamsDiscovered.Set(0)
	RequestDuration.WithLabelValues("search").Observe(0)
	RequestRetries.WithLabelValues("search").Add(0)
	RequestErrors.WithLabelValues("search").Add(0)
	RunDuration.Set(0)
	ReportedSizeBytes.Set(0)
	ActiveIngestRate.Set(0)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"streamlens_streams_completed_total",
		"streamlens_streams_discovered",
		"streamlens_es_request_duration_seconds",
		"streamlens_es_request_retries_total",
		"streamlens_es_request_errors_total",
		"streamlens_run_duration_seconds",
		"streamlens_reported_size_bytes",
		"streamlens_active_ingest_bytes_per_day",
	}

	for _, name := range expectedMetrics {
		if !strings.Contains(body, name) {
			t.Errorf("metric %s not found in /metrics output", name)
		}
	}
}
