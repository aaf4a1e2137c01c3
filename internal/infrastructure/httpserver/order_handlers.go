package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/httpserver/helpers"
)

const headerIdempotencyKey = "Idempotency-Key"

type orderRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Unit         string `json:"unit"`
	Consent      bool   `json:"consent"`
	BuildingName string `json:"buildingName"`
	ServiceType  string `json:"serviceType"`
	CampaignID   string `json:"campaignId"`
}

type orderResponse struct {
	OK bool `json:"ok"`
	*ports.SubmissionResult
}

type notifyRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Building string `json:"building"`
}

// submitOrder runs behind the rate limit middleware, so a throttled client is answered
// before its body is read. The pipeline reuses the recorded decision.
func (s *Server) submitOrder(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.admissionSvc.SubmitOrder(c.Request().Context(), helpers.GetClientKeyFromContext(c), ports.OrderRequest{
		BuildingName: req.BuildingName,
		ServiceType:  req.ServiceType,
		CampaignID:   req.CampaignID,
		Fields: campaign.OrderFields{
			Name:           req.Name,
			Phone:          req.Phone,
			Unit:           req.Unit,
			Consent:        req.Consent,
			IdempotencyKey: c.Request().Header.Get(headerIdempotencyKey),
		},
	})
	if err != nil {
		return s.httpError(c, err)
	}

	ordersRecorded.WithLabelValues(res.CampaignID, strconv.FormatBool(res.Duplicate)).Inc()
	return c.JSON(http.StatusOK, orderResponse{OK: true, SubmissionResult: res})
}

func (s *Server) subscribe(c echo.Context) error {
	var req notifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	_, _, err := s.admissionSvc.Subscribe(c.Request().Context(), helpers.GetClientKeyFromContext(c), ports.NotifyRequest{
		Name:     req.Name,
		Phone:    req.Phone,
		Building: req.Building,
	})
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
