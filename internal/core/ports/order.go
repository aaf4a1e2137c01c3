package ports

import (
	"context"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
)

// OrderRequest is an order submission as received at the boundary. Either
// BuildingName and ServiceType, or an existing CampaignID, must be given.
type OrderRequest struct {
	BuildingName string
	ServiceType  string
	CampaignID   string
	Fields       campaign.OrderFields
}

// NotifyRequest is a notify opt-in as received at the boundary.
type NotifyRequest struct {
	Name     string
	Phone    string
	Building string
}

// SubmissionResult is returned to the client for progress display.
type SubmissionResult struct {
	OrderID       string             `json:"orderId"`
	CampaignID    string             `json:"campaignId"`
	CurrentOrders int64              `json:"currentOrders"`
	MinOrders     int                `json:"minOrders"`
	Duplicate     bool               `json:"duplicate"`
	Decision      ratelimit.Decision `json:"-"`
}

// OrderAdmissionService runs admission, validation and recording for mutating requests.
type OrderAdmissionService interface {
	SubmitOrder(ctx context.Context, key ratelimit.ClientKey, req OrderRequest) (*SubmissionResult, error)
	Subscribe(ctx context.Context, key ratelimit.ClientKey, req NotifyRequest) (*campaign.Subscriber, ratelimit.Decision, error)
}
