package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gftdcojp/streamlens/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Analysis outcomes
	StreamsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_streams_completed_total",
		Help: "Analyzed streams by outcome (ok, skipped, error)",
	}, []string{"outcome"})

	StreamsDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamlens_streams_discovered",
		Help: "Number of data streams returned by discovery",
	})

	// Cluster request metrics
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamlens_es_request_duration_seconds",
		Help:    "Elasticsearch request latency by operation",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"op"})

	RequestRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_es_request_retries_total",
		Help: "Retried Elasticsearch requests by operation",
	}, []string{"op"})

	RequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_es_request_errors_total",
		Help: "Elasticsearch requests that failed after exhausting retries",
	}, []string{"op"})

	// Run-level summary
	RunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamlens_run_duration_seconds",
		Help: "Wall-clock duration of the last analysis run",
	})

	ReportedSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamlens_reported_size_bytes",
		Help: "Total stored size across reported streams",
	})

	ActiveIngestRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamlens_active_ingest_bytes_per_day",
		Help: "Summed ingestion rate across ACTIVE streams",
	})
)

// RunServer starts the Prometheus metrics HTTP server.
func RunServer(ctx context.Context, cfg config.MetricsConfig) error {
	mux := http.NewServeMux()
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
