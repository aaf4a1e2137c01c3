package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/groupbuy/campaign-service/internal/core/ports"
	infraDB "github.com/groupbuy/campaign-service/internal/infrastructure/db"
)

type dbChecker struct{ db *infraDB.Database }

func (d *dbChecker) Name() string                    { return "database" }
func (d *dbChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

type redisChecker struct{ client redis.Cmdable }

func (r *redisChecker) Name() string                    { return "redis" }
func (r *redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbChecker{db: db} }

func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisChecker{client: client}
}

