package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
)

// campaignView is the progress payload rendered by the landing page.
type campaignView struct {
	CampaignID    string `json:"campaignId"`
	Service       string `json:"service"`
	MinOrders     int    `json:"minOrders"`
	CurrentOrders int64  `json:"currentOrders"`
	BuildingName  string `json:"buildingName"`
	Progress      int    `json:"progress"`
	Reached       bool   `json:"reached"`
}

func newCampaignView(c *campaign.Campaign) campaignView {
	v := campaignView{
		CampaignID:    c.ID,
		Service:       c.Service,
		MinOrders:     c.MinOrders,
		CurrentOrders: c.CurrentOrders,
		Progress:      c.Progress(),
		Reached:       c.Reached(),
	}
	if b, ok := campaign.BuildingForCampaign(c.ID); ok {
		v.BuildingName = b.Name
	}
	return v
}

// getOrEnsureCampaign returns the campaign for a building and service, creating it on first read.
func (s *Server) getOrEnsureCampaign(c echo.Context) error {
	building := strings.TrimSpace(c.QueryParam("buildingName"))
	service := strings.TrimSpace(c.QueryParam("serviceType"))

	var missing []campaign.FieldError
	if building == "" {
		missing = append(missing, campaign.FieldError{Field: "buildingName", Msg: "is required"})
	}
	if service == "" {
		missing = append(missing, campaign.FieldError{Field: "serviceType", Msg: "is required"})
	}
	if len(missing) > 0 {
		return s.httpError(c, &campaign.ValidationError{Fields: missing})
	}

	camp, err := s.campaignSvc.EnsureCampaign(c.Request().Context(), building, service)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, newCampaignView(camp))
}

func (s *Server) getCampaign(c echo.Context) error {
	camp, err := s.campaignSvc.GetCampaign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, newCampaignView(camp))
}

// listCampaigns renders every stored campaign; it never creates any.
func (s *Server) listCampaigns(c echo.Context) error {
	camps, err := s.campaignSvc.ListCampaigns(c.Request().Context())
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"campaigns": newCampaignViews(camps)})
}

func newCampaignViews(camps []*campaign.Campaign) []campaignView {
	views := make([]campaignView, 0, len(camps))
	for _, camp := range camps {
		views = append(views, newCampaignView(camp))
	}
	return views
}

// seedCatalog ensures every catalog campaign. It is idempotent.
func (s *Server) seedCatalog(c echo.Context) error {
	camps, err := s.campaignSvc.SeedCatalog(c.Request().Context())
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "campaigns": newCampaignViews(camps)})
}
