package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and the registration ledger.
type MetricsService struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	ledgerDuration       *prometheus.HistogramVec
	registrationOutcomes *prometheus.CounterVec
	commitBatchSize      prometheus.Histogram
	selectionToggles     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	ledgerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registration_ledger_duration_seconds",
		Help:    "Duration of enrollment ledger calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	registrationOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_outcomes_total",
		Help: "Ledger registration attempts by outcome",
	}, []string{"outcome"})

	commitBatchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "registration_commit_batch_size",
		Help:    "Number of courses processed per selection commit",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
	})

	selectionToggles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "selection_toggles_total",
		Help: "Selection toggles by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, ledgerDuration, registrationOutcomes, commitBatchSize, selectionToggles, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		ledgerDuration:       ledgerDuration,
		registrationOutcomes: registrationOutcomes,
		commitBatchSize:      commitBatchSize,
		selectionToggles:     selectionToggles,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveLedgerCall records the latency of one ledger operation.
func (m *MetricsService) ObserveLedgerCall(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ledgerDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRegistrationOutcome counts one register attempt. outcome is "committed"
// or a failure kind.
func (m *MetricsService) RecordRegistrationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.registrationOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveCommitBatch records how many items a commit processed.
func (m *MetricsService) ObserveCommitBatch(size int) {
	if m == nil {
		return
	}
	m.commitBatchSize.Observe(float64(size))
}

// RecordSelectionToggle counts toggles: "selected", "deselected" or "rejected".
func (m *MetricsService) RecordSelectionToggle(result string) {
	if m == nil {
		return
	}
	m.selectionToggles.WithLabelValues(result).Inc()
}
