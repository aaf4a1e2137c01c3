package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/ports"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	ClientIdentity *ClientIdentityMiddleware
	Logging        *LoggingMiddleware
	RateLimit      *RateLimitMiddleware
	Metrics        *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	rateLimiterService ports.RateLimiterService,
	remoteAddrFallback bool,
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
	admissionDecisions *prometheus.CounterVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		ClientIdentity: NewClientIdentityMiddleware(remoteAddrFallback, logger),
		Logging:        NewLoggingMiddleware(logger),
		RateLimit:      NewRateLimitMiddleware(rateLimiterService, admissionDecisions, logger),
		Metrics:        NewMetricsMiddleware(requestsTotal, requestDuration),
	}
}
