package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/mohangy/azii/internal/domain"
)

// Metrics holds all Prometheus metrics for the back office.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	searchResults   *prometheus.HistogramVec
	incomeSynced    prometheus.Counter
	notifyFailures  prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "azii_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azii_requests_total",
				Help: "Total HTTP requests processed.",
			},
			[]string{"status"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azii_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azii_store_errors_total",
				Help: "Total record store failures by collection.",
			},
			[]string{"collection"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azii_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azii_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		searchResults: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "azii_search_results",
				Help:    "Number of records returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
			},
			[]string{"mode"},
		),
		incomeSynced: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "azii_income_entries_synced_total",
				Help: "Income entries created from processed transactions.",
			},
		),
		notifyFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "azii_notification_failures_total",
				Help: "Notifications that could not be delivered.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrStoreError increments the store error counter. Failures reported by a
// remote backend also count against the external error counter.
func (m *Metrics) IncrStoreError(collection string, err error) {
	m.storeErrors.WithLabelValues(collection).Inc()

	var ext *domain.ErrExternalService
	var open *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	switch {
	case errors.As(err, &ext):
		m.IncrExternalError(ext.Service)
	case errors.As(err, &open):
		m.IncrExternalError(open.Service)
	case errors.As(err, &timeout):
		m.IncrExternalError(timeout.Operation)
	}
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordSearchResults observes the size of a search result set.
func (m *Metrics) RecordSearchResults(mode string, n int) {
	m.searchResults.WithLabelValues(mode).Observe(float64(n))
}

// AddIncomeSynced counts newly projected income entries.
func (m *Metrics) AddIncomeSynced(n int) {
	m.incomeSynced.Add(float64(n))
}

// IncrNotifyFailure counts a failed notification delivery.
func (m *Metrics) IncrNotifyFailure() {
	m.notifyFailures.Inc()
}

// Middleware records request duration per route pattern and counts requests
// by outcome.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.RecordRequestDuration(r.Method+" "+route, time.Since(start))

		status := "success"
		if ww.Status() >= 500 {
			status = "error"
		} else if ww.Status() >= 400 {
			status = "client_error"
		}
		m.IncrRequest(status)
	})
}

// Snapshot returns a summary of operational counters suitable for the
// GET /v1/metrics/ops endpoint.
func (m *Metrics) Snapshot() *domain.OpsMetrics {
	// Note: Prometheus counters expose cumulative values.
	success := getCounterValue(m.requestsTotal, "success")
	clientErrors := getCounterValue(m.requestsTotal, "client_error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	totalRequests := success + clientErrors + errorCount
	cacheHits := getCounterValue(m.cacheHits, "subscribers")
	cacheMisses := getCounterValue(m.cacheMisses, "subscribers")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	var storeErrors float64
	for _, c := range []string{"subscribers", "transactions", "income", "expenses"} {
		storeErrors += getCounterValue(m.storeErrors, c)
	}

	return &domain.OpsMetrics{
		TotalRequests:  int64(totalRequests),
		ErrorRate:      errorRate,
		CacheHitRate:   cacheHitRate,
		IncomeSynced:   int64(counterValue(m.incomeSynced)),
		StoreErrors:    int64(storeErrors),
		SearchRequests: int64(histogramCount(m.searchResults, "fuzzy") + histogramCount(m.searchResults, "substring")),
		Period:         "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func histogramCount(hv *prometheus.HistogramVec, label string) uint64 {
	h, ok := hv.WithLabelValues(label).(prometheus.Metric)
	if !ok {
		return 0
	}
	m := &dto.Metric{}
	if err := h.Write(m); err != nil {
		return 0
	}
	if m.Histogram != nil && m.Histogram.SampleCount != nil {
		return *m.Histogram.SampleCount
	}
	return 0
}
