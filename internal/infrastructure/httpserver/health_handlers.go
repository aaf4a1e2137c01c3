package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type admissionStatus struct {
	Backend     string `json:"backend"`
	MaxRequests int    `json:"max_requests"`
	Window      string `json:"window"`
	Scope       string `json:"scope"`
}

// healthCheck reports the configured store and admission ledger and checks each backing dependency.
// A failing dependency turns the answer into 503 "degraded"; the memory backends have nothing to check.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	overall := "healthy"
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		start := time.Now()
		err := hc.Check(ctx)
		st := dependencyStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			st.Status = "unhealthy"
			st.Error = "check failed"
			overall = "degraded"
			if s.logger != nil {
				s.logger.WithError(err).WithField("dependency", hc.Name()).Warn("health check failed")
			}
		}
		deps[hc.Name()] = st
	}

	admission := admissionStatus{Backend: backendOrDefault(s.config.LedgerBackend)}
	if s.rateLimiter != nil {
		p := s.rateLimiter.Policy()
		admission.MaxRequests = p.MaxRequests
		admission.Window = p.Window.String()
		admission.Scope = p.Scope
	}

	health := map[string]interface{}{
		"status":       overall,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"service":      "campaign-service",
		"store":        map[string]string{"backend": backendOrDefault(s.config.StoreBackend)},
		"admission":    admission,
		"dependencies": deps,
	}
	code := http.StatusOK
	if overall != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, health)
}

func backendOrDefault(b string) string {
	if b == "" {
		return "memory"
	}
	return b
}
