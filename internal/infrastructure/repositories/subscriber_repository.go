package repositories

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/db"
)

// SubscriberRepository implements ports.SubscriberRepository on Postgres.
type SubscriberRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewSubscriberRepository(database *db.Database, logger *logrus.Logger) ports.SubscriberRepository {
	return &SubscriberRepository{db: database, logger: logger}
}

// Upsert keeps the stored name/building when the new request omits them.
func (r *SubscriberRepository) Upsert(ctx context.Context, s *campaign.Subscriber) (*campaign.Subscriber, error) {
	query := `
		INSERT INTO subscribers (id, name, phone, building, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (phone) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, subscribers.name),
			building = COALESCE(EXCLUDED.building, subscribers.building),
			updated_at = EXCLUDED.updated_at
		RETURNING id, name, phone, building, created_at, updated_at`

	var out campaign.Subscriber
	if err := r.db.DB.GetContext(ctx, &out, query, s.ID, s.Name, s.Phone, s.Building, s.CreatedAt, s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return &out, nil
}
