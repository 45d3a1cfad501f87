package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resolver"

// Metrics holds the Prometheus counters, histograms, and gauges for the resolver.
type Metrics struct {
	// Geocoding provider metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={autocomplete,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={autocomplete,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={autocomplete,reverse}
	RateLimitWait      prometheus.Histogram

	// Resolution metrics.
	SearchFallbacks      *prometheus.CounterVec // labels: outcome={hit,empty,error}
	SearchSuperseded     prometheus.Counter
	GeolocationOutcomes  *prometheus.CounterVec // labels: outcome={success,denied,unavailable,timeout}
	AddressesResolved    *prometheus.CounterVec // labels: path={detect,select,map}
	AddressesPublished   prometheus.Counter
	AddressPublishErrors prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		RateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for the outbound geocoding rate limiter.",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2},
		}),
		SearchFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallbacks_total",
			Help:      "Simplified fallback searches by outcome.",
		}, []string{"outcome"}),
		SearchSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_superseded_total",
			Help:      "Debounced queries replaced by newer input before reaching the provider.",
		}),
		GeolocationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geolocation_outcomes_total",
			Help:      "Geolocation requests by terminal state.",
		}, []string{"outcome"}),
		AddressesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "addresses_resolved_total",
			Help:      "Addresses emitted by resolution path.",
		}, []string{"path"}),
		AddressesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "addresses_published_total",
			Help:      "Resolved addresses written to the sink topic.",
		}),
		AddressPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_publish_errors_total",
			Help:      "Failed writes to the sink topic.",
		}),
	}
}

// NewMetrics creates and registers all resolver metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.RateLimitWait,
		m.SearchFallbacks,
		m.SearchSuperseded,
		m.GeolocationOutcomes,
		m.AddressesResolved,
		m.AddressesPublished,
		m.AddressPublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveWait implements ratelimit.Observer.
func (m *Metrics) ObserveWait(d time.Duration) {
	m.RateLimitWait.Observe(d.Seconds())
}
