package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/groupbuy/campaign-service/internal/infrastructure/httpserver/helpers"
)

const msgOfferUnavailable = "this offer is no longer available"

// httpError translates pipeline and store errors to echo HTTP errors.
func (s *Server) httpError(c echo.Context, err error) error {
	var rejected *ratelimit.RejectedError
	var invalid *campaign.ValidationError

	switch {
	case errors.As(err, &rejected):
		helpers.SetRateLimitHeaders(c, rejected.Decision, s.now())
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
	case errors.Is(err, ratelimit.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
	case errors.Is(err, campaign.ErrCampaignNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msgOfferUnavailable)
	case errors.As(err, &invalid):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"message": "invalid request",
			"errors":  invalid.ByField(),
		})
	case errors.Is(err, campaign.ErrUnknownBuilding), errors.Is(err, campaign.ErrUnknownService):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, campaign.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		s.logError(c, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		s.logError(c, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) logError(c echo.Context, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WithError(err).WithField("path", c.Path()).Error("request failed")
}
