package repositories

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/db"
)

// BuildingRepository implements ports.BuildingRepository on Postgres.
type BuildingRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewBuildingRepository(database *db.Database, logger *logrus.Logger) ports.BuildingRepository {
	return &BuildingRepository{db: database, logger: logger}
}

// GetOrCreate upserts on the unique name. The no-op DO UPDATE makes RETURNING
// yield the existing row, so the whole call is one statement.
func (r *BuildingRepository) GetOrCreate(ctx context.Context, b *campaign.Building) (*campaign.Building, error) {
	query := `
		INSERT INTO buildings (id, name, address, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, address, created_at`

	var out campaign.Building
	if err := r.db.DB.GetContext(ctx, &out, query, b.ID, b.Name, b.Address, b.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to upsert building: %w", err)
	}
	return &out, nil
}
