package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/db"
)

const campaignColumns = `id, service, min_orders, current_orders, building_id, created_at, updated_at`

// CampaignRepository implements ports.CampaignRepository on Postgres.
type CampaignRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewCampaignRepository(database *db.Database, logger *logrus.Logger) ports.CampaignRepository {
	return &CampaignRepository{db: database, logger: logger}
}

// GetOrCreate upserts on the campaign id. current_orders of an existing row is never touched.
func (r *CampaignRepository) GetOrCreate(ctx context.Context, c *campaign.Campaign) (*campaign.Campaign, error) {
	query := `
		INSERT INTO campaigns (id, service, min_orders, current_orders, building_id, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + campaignColumns

	var out campaign.Campaign
	err := r.db.DB.GetContext(ctx, &out, query, c.ID, c.Service, c.MinOrders, c.BuildingID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("failed to upsert campaign %s: %w", c.ID, campaign.ErrBuildingNotFound)
		}
		return nil, fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return &out, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	var out campaign.Campaign
	if err := r.db.DB.GetContext(ctx, &out, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", campaign.ErrCampaignNotFound, id)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &out, nil
}

func (r *CampaignRepository) List(ctx context.Context) ([]*campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY id`

	var out []*campaign.Campaign
	if err := r.db.DB.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return out, nil
}
