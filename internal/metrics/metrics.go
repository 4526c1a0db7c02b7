// Package metrics holds the Prometheus collectors exported by gymd.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gym"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	cashRecords   *prometheus.CounterVec
	cashAmount    *prometheus.CounterVec
	entries       *prometheus.CounterVec
	liveClients   prometheus.Gauge
	operations    *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec
	jobRuns       *prometheus.CounterVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		cashRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "cash_records_total",
			Help:      "Cash records appended, by category.",
		}, []string{"category"}),
		cashAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "cash_amount_total",
			Help:      "Cash appended in whole pesos, by category.",
		}, []string{"category"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Entry records appended, by membership state.",
		}, []string{"membership"}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "live_clients",
			Help:      "Clients currently registered.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "facade",
			Name:      "operations_total",
			Help:      "Facade operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		reportLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "report_duration_seconds",
			Help:      "Time spent replaying the ledger for a report.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"report"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and success.",
		}, []string{"job", "success"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
	}

	m.Registry.MustRegister(
		m.cashRecords,
		m.cashAmount,
		m.entries,
		m.liveClients,
		m.operations,
		m.reportLatency,
		m.jobRuns,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) CashAppended(category string, amount int64) {
	m.cashRecords.WithLabelValues(category).Inc()
	m.cashAmount.WithLabelValues(category).Add(float64(amount))
}

func (m *Metrics) EntryRecorded(membership string) {
	m.entries.WithLabelValues(membership).Inc()
}

func (m *Metrics) SetLiveClients(n int) {
	m.liveClients.Set(float64(n))
}

// Operation counts one facade call; outcome is "ok" or an error kind.
func (m *Metrics) Operation(name, outcome string) {
	m.operations.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) ObserveReport(report string, d time.Duration) {
	m.reportLatency.WithLabelValues(report).Observe(d.Seconds())
}

func (m *Metrics) JobRun(job string, success bool) {
	m.jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Instrument records HTTP metrics, labelled by the chi route pattern so
// ids in the path do not explode cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
