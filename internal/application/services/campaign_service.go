package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/ports"
)

// CampaignService owns buildings, campaigns and orders and keeps currentOrders consistent.
type CampaignService struct {
	buildings ports.BuildingRepository
	campaigns ports.CampaignRepository
	orders    ports.OrderRepository
	logger    *logrus.Logger
	now       func() time.Time
	ensure    singleflight.Group
}

func NewCampaignService(buildings ports.BuildingRepository, campaigns ports.CampaignRepository, orders ports.OrderRepository, logger *logrus.Logger) *CampaignService {
	return &CampaignService{
		buildings: buildings,
		campaigns: campaigns,
		orders:    orders,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for created_at stamps.
func (s *CampaignService) WithClock(now func() time.Time) *CampaignService {
	if now != nil {
		s.now = now
	}
	return s
}

// storeErr classifies repository errors: domain errors pass through, anything else is a store fault.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, campaign.ErrCampaignNotFound),
		errors.Is(err, campaign.ErrDuplicateSubmission),
		errors.Is(err, campaign.ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, campaign.ErrStoreUnavailable, err)
	}
}

// EnsureCampaign gets or creates the building and the campaign for (buildingName, serviceType).
// Both steps rely on the repositories' atomic upserts; concurrent callers in this process are
// additionally coalesced so a cold campaign costs one round of upserts.
func (s *CampaignService) EnsureCampaign(ctx context.Context, buildingName, serviceType string) (*campaign.Campaign, error) {
	bs, err := campaign.LookupBuilding(buildingName)
	if err != nil {
		return nil, err
	}
	ss, err := campaign.LookupService(serviceType)
	if err != nil {
		return nil, err
	}
	id, err := campaign.DeriveCampaignID(buildingName, serviceType)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.ensure.Do(id, func() (any, error) {
		now := s.now().UTC()
		b, err := s.buildings.GetOrCreate(ctx, &campaign.Building{
			ID:        uuid.New(),
			Name:      bs.Name,
			Address:   bs.Address,
			CreatedAt: now,
		})
		if err != nil {
			return nil, storeErr("ensure building", err)
		}
		c, err := s.campaigns.GetOrCreate(ctx, &campaign.Campaign{
			ID:         id,
			Service:    ss.Type,
			MinOrders:  ss.MinOrders,
			BuildingID: b.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return nil, storeErr("ensure campaign", err)
		}
		return c, nil
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"campaign_id": id, "building": buildingName}).WithError(err).Error("failed to ensure campaign")
		}
		return nil, err
	}
	c, ok := v.(*campaign.Campaign)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	// callers sharing the flight must not alias one struct
	cp := *c
	return &cp, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get campaign", err)
	}
	return c, nil
}

// ListCampaigns returns every stored campaign ordered by id.
func (s *CampaignService) ListCampaigns(ctx context.Context) ([]*campaign.Campaign, error) {
	cs, err := s.campaigns.List(ctx)
	if err != nil {
		return nil, storeErr("list campaigns", err)
	}
	return cs, nil
}

// RecordOrder stores one order for an existing campaign and bumps its counter by exactly one.
// Unknown ids fail closed with ErrCampaignNotFound; campaigns are never created from a client-supplied id.
// A replay of an idempotency key returns the original result together with ErrDuplicateSubmission.
func (s *CampaignService) RecordOrder(ctx context.Context, campaignID string, fields campaign.OrderFields) (*campaign.OrderResult, error) {
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, storeErr("get campaign", err)
	}
	order := campaign.NewOrder(c, fields, s.now())
	res, err := s.orders.CreateAndIncrement(ctx, order)
	if errors.Is(err, campaign.ErrDuplicateSubmission) {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"campaign_id": campaignID, "order_id": order.ID}).Info("duplicate order submission; returning original result")
		}
		return res, err
	}
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"campaign_id": campaignID}).WithError(err).Error("failed to record order")
		}
		return nil, storeErr("record order", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"campaign_id": campaignID, "order_id": res.Order.ID, "current_orders": res.NewCount}).Info("order recorded")
	}
	return res, nil
}

// SeedCatalog ensures every catalog building and campaign exists. It is idempotent.
func (s *CampaignService) SeedCatalog(ctx context.Context) ([]*campaign.Campaign, error) {
	var out []*campaign.Campaign
	for _, b := range campaign.Buildings() {
		for _, svc := range campaign.Services() {
			c, err := s.EnsureCampaign(ctx, b.Name, svc.Type)
			if err != nil {
				return nil, fmt.Errorf("seed %s/%s: %w", b.Slug, svc.Slug, err)
			}
			out = append(out, c)
		}
	}
	if s.logger != nil {
		s.logger.WithField("campaigns", len(out)).Info("campaign catalog seeded")
	}
	return out, nil
}
