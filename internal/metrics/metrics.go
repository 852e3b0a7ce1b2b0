package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes used as the "result" label
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
	ResultInternal = "internal_error"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Datastore
	DatastoreQueriesTotal  *prometheus.CounterVec
	DatastoreQueryDuration *prometheus.HistogramVec

	// Resolver
	GeoLookupsTotal *prometheus.CounterVec
	GeoLookupErrors *prometheus.CounterVec

	// Rate limiting
	RateLimitedTotal prometheus.Counter
}

// New registers all metrics on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		DatastoreQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datastore_queries_total",
				Help: "Total number of datastore queries",
			},
			[]string{"datastore", "status"},
		),

		DatastoreQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datastore_query_duration_seconds",
				Help:    "Datastore query latency in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"datastore"},
		),

		GeoLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_lookups_total",
				Help: "Total number of geolocation lookups by result",
			},
			[]string{"result"},
		),

		GeoLookupErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_lookup_errors_total",
				Help: "Total number of unexpected geolocation lookup failures by stage",
			},
			[]string{"stage"},
		),

		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}
}
