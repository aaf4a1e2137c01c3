package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
)

func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// CachingBuildingRepository decorates a BuildingRepository with cache-aside by name.
// Buildings never change once created, so entries are only ever written, never invalidated.
// Campaigns are not cached: their counters move on every order.
type CachingBuildingRepository struct {
	inner ports.BuildingRepository
	cache ports.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewCachingBuildingRepository(inner ports.BuildingRepository, cache ports.Cache, ttl time.Duration) ports.BuildingRepository {
	return &CachingBuildingRepository{inner: inner, cache: cache, ttl: ttl}
}

func buildingKey(name string) string { return "building:name:" + name }

func (c *CachingBuildingRepository) GetOrCreate(ctx context.Context, b *campaign.Building) (*campaign.Building, error) {
	if v, ok := cacheGet[campaign.Building](c.cache, ctx, buildingKey(b.Name)); ok {
		return v, nil
	}
	res, err, _ := c.sf.Do("upsert:"+b.Name, func() (any, error) {
		out, err := c.inner.GetOrCreate(ctx, b)
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, buildingKey(out.Name), out, c.ttl)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	out, ok := res.(*campaign.Building)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	cp := *out
	return &cp, nil
}

var _ ports.BuildingRepository = (*CachingBuildingRepository)(nil)
