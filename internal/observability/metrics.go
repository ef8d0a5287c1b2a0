package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a prometheus.Collector holding the HTTP metrics of one
// service.
type Collector struct {
	service string

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewCollector returns a Collector whose samples carry the given service
// label. Register it with a prometheus.Registerer before serving /metrics.
func NewCollector(service string) *Collector {
	return &Collector{
		service: service,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			}, []string{"service", "method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			}, []string{"service", "method", "path"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Total unhandled exceptions",
			}, []string{"service"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requests.Describe(ch)
	c.duration.Describe(ch)
	c.errors.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requests.Collect(ch)
	c.duration.Collect(ch)
	c.errors.Collect(ch)
}

// ObserveRequest records one finished request.
func (c *Collector) ObserveRequest(method, path, status string, seconds float64) {
	c.requests.WithLabelValues(c.service, method, path, status).Inc()
	c.duration.WithLabelValues(c.service, method, path).Observe(seconds)
}

// ObservePanic records one unhandled failure.
func (c *Collector) ObservePanic() {
	c.errors.WithLabelValues(c.service).Inc()
}
