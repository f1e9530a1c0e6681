// Package metrics exposes Prometheus collectors for a running scan.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ytscan/pkg/logger"
)

var (
	probesTotal           *prometheus.CounterVec
	probeDurationSeconds  prometheus.Histogram
	inflightProbes        prometheus.Gauge
	checkpointWritesTotal *prometheus.CounterVec
	gentleDelaySeconds    prometheus.Histogram
	foundFileRecords      prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytscan_probes_total",
				Help: "Total number of identifiers probed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		probeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ytscan_probe_duration_seconds",
				Help:    "Histogram of probe latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
		)

		inflightProbes = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytscan_inflight_probes",
				Help: "Number of probes currently waiting on the remote side.",
			},
		)

		checkpointWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytscan_checkpoint_writes_total",
				Help: "Total number of checkpoint writes, labeled by status.",
			},
			[]string{"status"},
		)

		gentleDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ytscan_gentle_delay_seconds",
				Help:    "Histogram of gentle-mode delays between dispatches.",
				Buckets: []float64{0.5, 1, 2, 3, 4, 5, 10},
			},
		)

		foundFileRecords = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytscan_found_file_records",
				Help: "Number of records in the last written found file.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProbe records one classified probe.
func ObserveProbe(found bool, duration time.Duration) {
	outcome := "not_found"
	if found {
		outcome = "found"
	}
	probesTotal.WithLabelValues(outcome).Inc()
	probeDurationSeconds.Observe(duration.Seconds())
}

// IncInflight increments the in-flight probes gauge.
func IncInflight() {
	inflightProbes.Inc()
}

// DecInflight decrements the in-flight probes gauge.
func DecInflight() {
	inflightProbes.Dec()
}

// ObserveCheckpointWrite records a checkpoint save attempt.
func ObserveCheckpointWrite(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	checkpointWritesTotal.WithLabelValues(status).Inc()
}

// ObserveGentleDelay records one politeness delay.
func ObserveGentleDelay(d time.Duration) {
	gentleDelaySeconds.Observe(d.Seconds())
}

// SetFoundRecords records the size of the written found file.
func SetFoundRecords(n int) {
	foundFileRecords.Set(float64(n))
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, log logger.Logger) error {
	Init()

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.InfoWithFields("Metrics endpoint listening", map[string]interface{}{
		"addr": addr,
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
