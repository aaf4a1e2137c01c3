package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/groupbuy/campaign-service/internal/application/services"
	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/repositories"
)

const (
	helio = "헬리오시티"
	glass = "유리청소"
)

func newCampaignService(store *repositories.MemoryStore) *impl.CampaignService {
	return impl.NewCampaignService(store.Buildings(), store.Campaigns(), store.Orders(), nil)
}

func validFields() campaign.OrderFields {
	return campaign.OrderFields{Name: "홍길동", Phone: "010-1234-5678", Consent: true}
}

func TestEnsureCampaign_ConcurrentCallersConverge(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)

	const callers = 50
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.EnsureCampaign(context.Background(), helio, glass)
			if err == nil {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "helio-glass-cleaning", id)
	}
	buildings, campaigns, orders := store.Counts()
	assert.Equal(t, 1, buildings)
	assert.Equal(t, 1, campaigns)
	assert.Equal(t, 0, orders)
}

func TestEnsureCampaign_NeverResetsCounter(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)
	ctx := context.Background()

	c, err := svc.EnsureCampaign(ctx, helio, glass)
	require.NoError(t, err)
	assert.Equal(t, 20, c.MinOrders)
	assert.Equal(t, int64(0), c.CurrentOrders)

	_, err = svc.RecordOrder(ctx, c.ID, validFields())
	require.NoError(t, err)

	again, err := svc.EnsureCampaign(ctx, helio, glass)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.CurrentOrders)
}

func TestEnsureCampaign_SharedBuilding(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)
	ctx := context.Background()

	a, err := svc.EnsureCampaign(ctx, helio, glass)
	require.NoError(t, err)
	b, err := svc.EnsureCampaign(ctx, helio, "에어컨 청소")
	require.NoError(t, err)

	assert.Equal(t, a.BuildingID, b.BuildingID)
	assert.Equal(t, "helio-ac-cleaning", b.ID)
	buildings, campaigns, _ := store.Counts()
	assert.Equal(t, 1, buildings)
	assert.Equal(t, 2, campaigns)
}

func TestEnsureCampaign_UnknownCatalogEntryWritesNothing(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)

	_, err := svc.EnsureCampaign(context.Background(), "없는아파트", glass)
	require.ErrorIs(t, err, campaign.ErrUnknownBuilding)
	_, err = svc.EnsureCampaign(context.Background(), helio, "세차")
	require.ErrorIs(t, err, campaign.ErrUnknownService)
	assert.Equal(t, 0, store.Mutations())
}

func TestRecordOrder_ConcurrentIncrementsAreNotLost(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)
	ctx := context.Background()
	c, err := svc.EnsureCampaign(ctx, helio, glass)
	require.NoError(t, err)

	const n = 100
	counts := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.RecordOrder(ctx, c.ID, validFields())
			if err == nil {
				counts <- res.NewCount
			}
		}()
	}
	wg.Wait()
	close(counts)

	seen := map[int64]bool{}
	for v := range counts {
		require.False(t, seen[v], "count %d observed twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)

	final, err := svc.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), final.CurrentOrders)

	_, _, stored := store.Counts()
	assert.Equal(t, n, stored)
}

func TestRecordOrder_UnknownCampaignFailsClosed(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)

	_, err := svc.RecordOrder(context.Background(), "helio-glass-cleaning", validFields())
	require.ErrorIs(t, err, campaign.ErrCampaignNotFound)
	assert.Equal(t, 0, store.Mutations())
}

func TestRecordOrder_IdempotencyKeyCountsOnce(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)
	ctx := context.Background()
	c, err := svc.EnsureCampaign(ctx, helio, glass)
	require.NoError(t, err)

	f := validFields()
	f.IdempotencyKey = "retry-1"
	first, err := svc.RecordOrder(ctx, c.ID, f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.NewCount)

	second, err := svc.RecordOrder(ctx, c.ID, f)
	require.ErrorIs(t, err, campaign.ErrDuplicateSubmission)
	require.NotNil(t, second)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, int64(1), second.NewCount)
}

type failingOrders struct{ err error }

func (f failingOrders) CreateAndIncrement(context.Context, *campaign.Order) (*campaign.OrderResult, error) {
	return nil, f.err
}

var _ ports.OrderRepository = failingOrders{}

func TestRecordOrder_StoreFaultIsUnavailable(t *testing.T) {
	store := repositories.NewMemoryStore()
	boom := errors.New("connection reset")
	svc := impl.NewCampaignService(store.Buildings(), store.Campaigns(), failingOrders{err: boom}, nil)
	ctx := context.Background()
	c, err := svc.EnsureCampaign(ctx, helio, glass)
	require.NoError(t, err)

	_, err = svc.RecordOrder(ctx, c.ID, validFields())
	require.ErrorIs(t, err, campaign.ErrStoreUnavailable)
	require.ErrorIs(t, err, boom)

	after, err := svc.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), after.CurrentOrders)
}

func TestSeedCatalog_Idempotent(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)
	ctx := context.Background()

	first, err := svc.SeedCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, first, len(campaign.Buildings())*len(campaign.Services()))

	_, err = svc.SeedCatalog(ctx)
	require.NoError(t, err)
	buildings, campaigns, _ := store.Counts()
	assert.Equal(t, len(campaign.Buildings()), buildings)
	assert.Equal(t, len(first), campaigns)

	for _, c := range first {
		got, err := svc.GetCampaign(ctx, c.ID)
		require.NoError(t, err, fmt.Sprintf("campaign %s", c.ID))
		assert.Equal(t, c.MinOrders, got.MinOrders)
	}
}

func TestListCampaigns_OrderedWithProgress(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newCampaignService(store)
	ctx := context.Background()

	empty, err := svc.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.SeedCatalog(ctx)
	require.NoError(t, err)
	c, err := svc.EnsureCampaign(ctx, helio, glass)
	require.NoError(t, err)
	_, err = svc.RecordOrder(ctx, c.ID, validFields())
	require.NoError(t, err)

	all, err := svc.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(campaign.Buildings())*len(campaign.Services()))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
	for _, got := range all {
		if got.ID == c.ID {
			assert.Equal(t, int64(1), got.CurrentOrders)
		}
	}
}
