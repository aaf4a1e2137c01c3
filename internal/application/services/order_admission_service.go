package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/groupbuy/campaign-service/internal/core/ports"
)

// OrderAdmissionService runs mutating requests through admission, validation and the counter store,
// strictly in that order. Nothing is validated or written for a rejected client.
type OrderAdmissionService struct {
	limiter     ports.RateLimiterService
	campaigns   ports.CampaignService
	subscribers ports.SubscriberRepository
	logger      *logrus.Logger
	now         func() time.Time
}

func NewOrderAdmissionService(limiter ports.RateLimiterService, campaigns ports.CampaignService, subscribers ports.SubscriberRepository, logger *logrus.Logger) *OrderAdmissionService {
	return &OrderAdmissionService{
		limiter:     limiter,
		campaigns:   campaigns,
		subscribers: subscribers,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source handed to the rate limiter.
func (s *OrderAdmissionService) WithClock(now func() time.Time) *OrderAdmissionService {
	if now != nil {
		s.now = now
	}
	return s
}

// admit returns a *ratelimit.RejectedError when key is over its window. A decision already
// recorded on ctx by the HTTP layer is reused so a request is counted once.
// A ledger fault that the limiter does not fail open on is a store fault, not a rejection.
func (s *OrderAdmissionService) admit(ctx context.Context, key ratelimit.ClientKey) (ratelimit.Decision, error) {
	if key == "" {
		key = ratelimit.UnknownClient
	}
	d, ok := ratelimit.DecisionFromContext(ctx)
	if !ok {
		var err error
		d, err = s.limiter.Admit(ctx, key, s.now())
		if err != nil {
			if s.logger != nil {
				s.logger.WithField("client", key).WithError(err).Warn("admission ledger error")
			}
			if !d.Admitted {
				return d, storeErr("admission ledger", err)
			}
		}
	}
	if !d.Admitted {
		return d, &ratelimit.RejectedError{Key: key, Decision: d}
	}
	return d, nil
}

// SubmitOrder admits, validates, ensures the campaign and records the order.
func (s *OrderAdmissionService) SubmitOrder(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
	d, err := s.admit(ctx, key)
	if err != nil {
		return &ports.SubmissionResult{Decision: d}, err
	}

	fields, err := campaign.ValidateOrder(req.Fields)
	if err != nil {
		return &ports.SubmissionResult{Decision: d}, err
	}

	campaignID, err := s.resolveCampaign(ctx, req)
	if err != nil {
		return &ports.SubmissionResult{Decision: d}, err
	}

	res, err := s.campaigns.RecordOrder(ctx, campaignID, fields)
	duplicate := errors.Is(err, campaign.ErrDuplicateSubmission)
	if err != nil && !duplicate {
		return &ports.SubmissionResult{Decision: d}, err
	}
	return &ports.SubmissionResult{
		OrderID:       res.Order.ID.String(),
		CampaignID:    res.Campaign.ID,
		CurrentOrders: res.NewCount,
		MinOrders:     res.Campaign.MinOrders,
		Duplicate:     duplicate,
		Decision:      d,
	}, nil
}

// resolveCampaign ensures the campaign for a building/service pair. A bare id is passed through
// unchanged; RecordOrder fails closed when it does not exist.
func (s *OrderAdmissionService) resolveCampaign(ctx context.Context, req ports.OrderRequest) (string, error) {
	building := strings.TrimSpace(req.BuildingName)
	service := strings.TrimSpace(req.ServiceType)
	if building != "" || service != "" {
		c, err := s.campaigns.EnsureCampaign(ctx, building, service)
		if err != nil {
			return "", err
		}
		if req.CampaignID != "" && req.CampaignID != c.ID {
			return "", &campaign.ValidationError{Fields: []campaign.FieldError{{Field: "campaignId", Msg: "does not match building and service"}}}
		}
		return c.ID, nil
	}
	id := strings.TrimSpace(req.CampaignID)
	if id == "" {
		return "", &campaign.ValidationError{Fields: []campaign.FieldError{{Field: "campaignId", Msg: "required when buildingName and serviceType are absent"}}}
	}
	return id, nil
}

// Subscribe admits and stores a notify opt-in keyed by phone.
func (s *OrderAdmissionService) Subscribe(ctx context.Context, key ratelimit.ClientKey, req ports.NotifyRequest) (*campaign.Subscriber, ratelimit.Decision, error) {
	d, err := s.admit(ctx, key)
	if err != nil {
		return nil, d, err
	}
	name, phone, building := strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Building)
	phone, err = campaign.ValidateSubscription(name, phone, building)
	if err != nil {
		return nil, d, err
	}
	now := s.now().UTC()
	sub := &campaign.Subscriber{
		ID:        uuid.New(),
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name != "" {
		sub.Name = &name
	}
	if building != "" {
		sub.Building = &building
	}
	stored, err := s.subscribers.Upsert(ctx, sub)
	if err != nil {
		return nil, d, storeErr("upsert subscriber", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"subscriber_id": stored.ID}).Info("notify subscription stored")
	}
	return stored, d, nil
}

var _ ports.OrderAdmissionService = (*OrderAdmissionService)(nil)
