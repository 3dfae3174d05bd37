package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP request metrics. Routes are recorded as patterns
// ("/api/posts/{id}"), never raw paths, to keep label cardinality bounded.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthDenials     *prometheus.CounterVec
}

// NewMetrics registers the blog metrics with the given registerer; pass nil
// for the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method, and status code",
		}, []string{"route", "method", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		AuthDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "auth_denials_total",
			Help:      "Authentication and authorization denials by kind",
		}, []string{"kind"}),
	}
}
