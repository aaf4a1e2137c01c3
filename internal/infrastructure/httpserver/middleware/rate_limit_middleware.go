package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/httpserver/helpers"
)

// RateLimitMiddleware admits requests before their handlers do any work and records
// the decision on the request context. Methods outside the policy scope pass untouched.
// A fail-closed ledger fault answers 503.
type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiterService
	decisions   *prometheus.CounterVec
	logger      *logrus.Logger
	now         func() time.Time
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiterService, decisions *prometheus.CounterVec, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, decisions: decisions, logger: logger, now: time.Now}
}

func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.rateLimiter == nil || !r.rateLimiter.Policy().Applies(c.Request().Method) {
				return next(c)
			}

			key := helpers.GetClientKeyFromContext(c)
			now := r.now()
			d, rlErr := r.rateLimiter.Admit(c.Request().Context(), key, now)
			if rlErr != nil {
				if r.logger != nil {
					r.logger.WithError(rlErr).WithField("client", key).Warn("rate limiter error")
				}
				if !d.Admitted {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable")
				}
			}

			helpers.SetDecision(c, d)
			helpers.SetRateLimitHeaders(c, d, now)
			if !d.Admitted {
				if r.decisions != nil {
					r.decisions.WithLabelValues("rejected").Inc()
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			if r.decisions != nil {
				r.decisions.WithLabelValues("admitted").Inc()
			}
			c.SetRequest(c.Request().WithContext(ratelimit.ContextWithDecision(c.Request().Context(), d)))
			return next(c)
		}
	}
}
