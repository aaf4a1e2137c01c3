package ports

import (
	"context"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
)

// BuildingRepository stores buildings, unique by name.
type BuildingRepository interface {
	// GetOrCreate returns the building named b.Name, inserting b if absent.
	// Concurrent callers with the same name converge on one record.
	GetOrCreate(ctx context.Context, b *campaign.Building) (*campaign.Building, error)
}

// CampaignRepository stores campaigns keyed by their derived id.
type CampaignRepository interface {
	// GetOrCreate returns the campaign with c.ID, inserting c if absent. An existing
	// campaign is returned unchanged (its counter is never reset).
	GetOrCreate(ctx context.Context, c *campaign.Campaign) (*campaign.Campaign, error)
	// GetByID returns campaign.ErrCampaignNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*campaign.Campaign, error)
	List(ctx context.Context) ([]*campaign.Campaign, error)
}

// OrderRepository owns the order-plus-increment unit of work.
type OrderRepository interface {
	// CreateAndIncrement stores o and increments its campaign's counter by exactly one
	// as a single atomic unit. If an order with o.ID already exists nothing is
	// incremented and the stored result is returned with campaign.ErrDuplicateSubmission.
	// An unknown campaign yields campaign.ErrCampaignNotFound.
	CreateAndIncrement(ctx context.Context, o *campaign.Order) (*campaign.OrderResult, error)
}

// CampaignService is the only writer of buildings, campaigns and orders.
type CampaignService interface {
	EnsureCampaign(ctx context.Context, buildingName, serviceType string) (*campaign.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*campaign.Campaign, error)
	RecordOrder(ctx context.Context, campaignID string, fields campaign.OrderFields) (*campaign.OrderResult, error)
	SeedCatalog(ctx context.Context) ([]*campaign.Campaign, error)
}
