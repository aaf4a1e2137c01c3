package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
)

// MemoryStore keeps buildings, campaigns, orders and subscribers in process.
// One mutex guards everything, so every repository method is a single atomic step.
// It backs STORE_BACKEND=memory and the service tests.
type MemoryStore struct {
	mu          sync.Mutex
	buildings   map[string]*campaign.Building
	campaigns   map[string]*campaign.Campaign
	orders      map[uuid.UUID]*campaign.Order
	subscribers map[string]*campaign.Subscriber
	mutations   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buildings:   make(map[string]*campaign.Building),
		campaigns:   make(map[string]*campaign.Campaign),
		orders:      make(map[uuid.UUID]*campaign.Order),
		subscribers: make(map[string]*campaign.Subscriber),
	}
}

// Mutations counts successful writes of any kind.
func (m *MemoryStore) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// Counts reports how many buildings, campaigns and orders are stored.
func (m *MemoryStore) Counts() (buildings, campaigns, orders int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buildings), len(m.campaigns), len(m.orders)
}

func (m *MemoryStore) Buildings() ports.BuildingRepository     { return memoryBuildings{m} }
func (m *MemoryStore) Campaigns() ports.CampaignRepository     { return memoryCampaigns{m} }
func (m *MemoryStore) Orders() ports.OrderRepository           { return memoryOrders{m} }
func (m *MemoryStore) Subscribers() ports.SubscriberRepository { return memorySubscribers{m} }

type memoryBuildings struct{ m *MemoryStore }

func (r memoryBuildings) GetOrCreate(ctx context.Context, b *campaign.Building) (*campaign.Building, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.buildings[b.Name]; ok {
		cp := *existing
		return &cp, nil
	}
	stored := *b
	r.m.buildings[b.Name] = &stored
	r.m.mutations++
	cp := stored
	return &cp, nil
}

type memoryCampaigns struct{ m *MemoryStore }

func (r memoryCampaigns) GetOrCreate(ctx context.Context, c *campaign.Campaign) (*campaign.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.campaigns[c.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	if !r.m.hasBuildingLocked(c.BuildingID) {
		return nil, fmt.Errorf("campaign %s: %w", c.ID, campaign.ErrBuildingNotFound)
	}
	stored := *c
	stored.CurrentOrders = 0
	r.m.campaigns[c.ID] = &stored
	r.m.mutations++
	cp := stored
	return &cp, nil
}

func (r memoryCampaigns) GetByID(ctx context.Context, id string) (*campaign.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", campaign.ErrCampaignNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (r memoryCampaigns) List(ctx context.Context) ([]*campaign.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*campaign.Campaign, 0, len(r.m.campaigns))
	for _, c := range r.m.campaigns {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) hasBuildingLocked(id uuid.UUID) bool {
	for _, b := range m.buildings {
		if b.ID == id {
			return true
		}
	}
	return false
}

type memoryOrders struct{ m *MemoryStore }

func (r memoryOrders) CreateAndIncrement(ctx context.Context, o *campaign.Order) (*campaign.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if existing, ok := r.m.orders[o.ID]; ok {
		c := r.m.campaigns[existing.CampaignID]
		oc, cc := *existing, *c
		return &campaign.OrderResult{Order: &oc, Campaign: &cc, NewCount: cc.CurrentOrders}, campaign.ErrDuplicateSubmission
	}
	c, ok := r.m.campaigns[o.CampaignID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", campaign.ErrCampaignNotFound, o.CampaignID)
	}
	stored := *o
	r.m.orders[o.ID] = &stored
	c.CurrentOrders++
	c.UpdatedAt = time.Now().UTC()
	r.m.mutations++

	oc, cc := stored, *c
	return &campaign.OrderResult{Order: &oc, Campaign: &cc, NewCount: cc.CurrentOrders}, nil
}

type memorySubscribers struct{ m *MemoryStore }

func (r memorySubscribers) Upsert(ctx context.Context, s *campaign.Subscriber) (*campaign.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.subscribers[s.Phone]; ok {
		if s.Name != nil {
			existing.Name = s.Name
		}
		if s.Building != nil {
			existing.Building = s.Building
		}
		existing.UpdatedAt = s.UpdatedAt
		r.m.mutations++
		cp := *existing
		return &cp, nil
	}
	stored := *s
	r.m.subscribers[s.Phone] = &stored
	r.m.mutations++
	cp := stored
	return &cp, nil
}
