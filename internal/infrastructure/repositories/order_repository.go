package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/db"
)

// OrderRepository implements ports.OrderRepository on Postgres.
type OrderRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewOrderRepository(database *db.Database, logger *logrus.Logger) ports.OrderRepository {
	return &OrderRepository{db: database, logger: logger}
}

// CreateAndIncrement inserts the order and bumps the counter in one transaction.
// The increment is a single UPDATE expression, so concurrent orders serialise on the
// campaign row inside Postgres and none is lost. A conflicting order id short-circuits
// before the increment, which makes retries with the same idempotency key safe.
func (r *OrderRepository) CreateAndIncrement(ctx context.Context, o *campaign.Order) (*campaign.OrderResult, error) {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin order transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	insert := `
		INSERT INTO orders (id, name, phone, service_type, unit, consent, campaign_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	res, err := tx.ExecContext(ctx, insert,
		o.ID, o.Name, o.Phone, o.ServiceType, o.Unit, o.Consent, o.CampaignID, o.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: %s", campaign.ErrCampaignNotFound, o.CampaignID)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if inserted == 0 {
		existing, c, err := r.loadExisting(ctx, tx, o)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit order transaction: %w", err)
		}
		return &campaign.OrderResult{Order: existing, Campaign: c, NewCount: c.CurrentOrders}, campaign.ErrDuplicateSubmission
	}

	increment := `
		UPDATE campaigns
		SET current_orders = current_orders + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + campaignColumns

	var c campaign.Campaign
	if err := tx.GetContext(ctx, &c, increment, o.CampaignID); err != nil {
		return nil, fmt.Errorf("failed to increment campaign counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}
	return &campaign.OrderResult{Order: o, Campaign: &c, NewCount: c.CurrentOrders}, nil
}

func (r *OrderRepository) loadExisting(ctx context.Context, tx *sqlx.Tx, o *campaign.Order) (*campaign.Order, *campaign.Campaign, error) {
	var existing campaign.Order
	q := `SELECT id, name, phone, service_type, unit, consent, campaign_id, created_at FROM orders WHERE id = $1`
	if err := tx.GetContext(ctx, &existing, q, o.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to load existing order: %w", err)
	}
	var c campaign.Campaign
	if err := tx.GetContext(ctx, &c, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, existing.CampaignID); err != nil {
		return nil, nil, fmt.Errorf("failed to load campaign for existing order: %w", err)
	}
	return &existing, &c, nil
}
