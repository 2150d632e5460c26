package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service's Prometheus metrics. A nil *Manager is valid and
// records nothing, so components can be built without metrics in tests.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	// Refresh cycle
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	lastRefresh     prometheus.Gauge
	cacheLookups    *prometheus.CounterVec

	// Ledger size after the last successful refresh
	summaries   prometheus.Gauge
	dailyRows   prometheus.Gauge
	skippedRows prometheus.Gauge
	rowIssues   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager builds a Manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "leave_ledger",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.refreshes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "refreshes_total",
		Help:      "Refresh cycles by outcome (completed, unchanged, source_missing, failed)",
	}, []string{"status"})

	m.refreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Time to load, parse and allocate the extract",
		Buckets:   m.buckets,
	})

	m.lastRefresh = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix time of the last refresh cycle",
	})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cache_lookups_total",
		Help:      "Snapshot cache lookups by result (hit, miss)",
	}, []string{"result"})

	m.summaries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ledger_summaries",
		Help:      "Per-request summary rows in the current ledger",
	})

	m.dailyRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ledger_daily_rows",
		Help:      "Daily allocation rows in the current ledger",
	})

	m.skippedRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ledger_skipped_requests",
		Help:      "Approved requests excluded from the current ledger",
	})

	m.rowIssues = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "source_row_issues",
		Help:      "Malformed cells reported by the last parse",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration by route and method",
		Buckets:   m.buckets,
	}, []string{"route", "method"})
}

// =============================================================================
// RECORDING
// =============================================================================

// ObserveRefresh records one refresh cycle.
func (m *Manager) ObserveRefresh(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(status).Inc()
	m.refreshDuration.Observe(d.Seconds())
	m.lastRefresh.SetToCurrentTime()
}

// ObserveCacheLookup records whether a snapshot load was served from cache.
func (m *Manager) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SetLedgerSize publishes the size of the current ledger.
func (m *Manager) SetLedgerSize(summaries, daily, skipped, issues int) {
	if m == nil {
		return
	}
	m.summaries.Set(float64(summaries))
	m.dailyRows.Set(float64(daily))
	m.skippedRows.Set(float64(skipped))
	m.rowIssues.Set(float64(issues))
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// =============================================================================
// EXPOSITION
// =============================================================================

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
