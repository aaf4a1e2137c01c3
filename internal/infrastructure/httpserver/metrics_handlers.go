package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	admissionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Rate limit admission outcomes for mutating requests",
		},
		[]string{"result"},
	)

	ordersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_orders_recorded_total",
			Help: "Orders recorded per campaign; duplicates are counted separately",
		},
		[]string{"campaign_id", "duplicate"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, admissionDecisions, ordersRecorded)
}

// GetRequestsTotal returns the requests total metric for middleware use
func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

// GetRequestDuration returns the request duration metric for middleware use
func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

// GetAdmissionDecisions returns the admission outcome counter recorded by the rate limit middleware.
func GetAdmissionDecisions() *prometheus.CounterVec {
	return admissionDecisions
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":            "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":          "Histogram for HTTP request duration by method, endpoint",
			"admission_decisions_total":      "Counter for admitted and rejected mutating requests",
			"campaign_orders_recorded_total": "Counter for recorded orders by campaign",
			"metrics_endpoint":               "/metrics",
		}).Debug("Prometheus metrics registered")
	}
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
