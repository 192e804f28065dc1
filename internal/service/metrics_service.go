package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/haperez86/EduPay/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and ledger activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	paymentsRegistered *prometheus.CounterVec
	paymentsVoided     prometheus.Counter
	settledAmount      prometheus.Counter
	voidedAmount       prometheus.Counter
	driftEnrollments   prometheus.Gauge
	reconcileRuns      *prometheus.CounterVec
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsRegistered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_registered_total",
		Help: "Payments committed to the ledger",
	}, []string{"type"})

	paymentsVoided := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_payments_voided_total",
		Help: "Payments voided",
	})

	settledAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settled_amount_total",
		Help: "Sum of settled payment amounts",
	})

	voidedAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_voided_amount_total",
		Help: "Sum of voided payment amounts",
	})

	driftEnrollments := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_reconciliation_drift_enrollments",
		Help: "Enrollments whose paid amount disagrees with confirmed payments at the last sweep",
	})

	reconcileRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reconciliation_runs_total",
		Help: "Reconciliation sweeps by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		paymentsRegistered, paymentsVoided, settledAmount, voidedAmount, driftEnrollments, reconcileRuns, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		paymentsRegistered: paymentsRegistered,
		paymentsVoided:     paymentsVoided,
		settledAmount:      settledAmount,
		voidedAmount:       voidedAmount,
		driftEnrollments:   driftEnrollments,
		reconcileRuns:      reconcileRuns,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPaymentRegistered counts a committed payment.
func (m *MetricsService) RecordPaymentRegistered(paymentType models.PaymentType, settled decimal.Decimal) {
	if m == nil {
		return
	}
	m.paymentsRegistered.WithLabelValues(string(paymentType)).Inc()
	m.settledAmount.Add(settled.InexactFloat64())
}

// RecordPaymentVoided counts a voided payment.
func (m *MetricsService) RecordPaymentVoided(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.paymentsVoided.Inc()
	m.voidedAmount.Add(amount.InexactFloat64())
}

// RecordReconciliation publishes the outcome of a drift sweep.
func (m *MetricsService) RecordReconciliation(drifting int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reconcileRuns.WithLabelValues("error").Inc()
		return
	}
	m.reconcileRuns.WithLabelValues("ok").Inc()
	m.driftEnrollments.Set(float64(drifting))
}
