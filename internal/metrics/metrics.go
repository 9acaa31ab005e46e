package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mo9a7i/timebot/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	StepsTotal         *prometheus.CounterVec
	StepDuration       *prometheus.HistogramVec
	FileUpdateAttempts *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a registry and registers all metrics on it
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timebot_runs_total",
				Help: "Total number of workflow runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "timebot_run_duration_seconds",
				Help:    "Wall time of a workflow run in seconds",
				Buckets: prometheus.ExponentialBuckets(60, 2, 6), // 1m to 32m
			},
		),
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timebot_steps_total",
				Help: "Total number of workflow steps by step and outcome",
			},
			[]string{"step", "outcome"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timebot_step_duration_seconds",
				Help:    "Duration of workflow steps in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		FileUpdateAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timebot_file_update_attempts_total",
				Help: "File update attempts by result",
			},
			[]string{"result"},
		),
		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "timebot_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
		registry: reg,
	}
}

// ObserveStep records one finished step
func (m *Metrics) ObserveStep(step string, outcome models.StepOutcome, d time.Duration) {
	m.StepsTotal.WithLabelValues(step, string(outcome)).Inc()
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// ObserveAttempt records one file update attempt
func (m *Metrics) ObserveAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.FileUpdateAttempts.WithLabelValues(result).Inc()
}

// ObserveRun records a finished run. A run is "aborted" when it ended
// early, "partial" when a step failed, otherwise "completed".
func (m *Metrics) ObserveRun(report *models.RunReport) {
	outcome := "completed"
	switch {
	case report.Err != nil:
		outcome = "aborted"
	case report.Failed() > 0:
		outcome = "partial"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(report.Finished.Sub(report.Started).Seconds())
	m.LastRunTimestamp.Set(float64(report.Finished.Unix()))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("metrics server shutdown: %v", err)
		}
	}()

	logger.Printf("serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
