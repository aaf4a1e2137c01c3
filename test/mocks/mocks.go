package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/groupbuy/campaign-service/internal/core/ports"
)

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	ConsumeFn func(ctx context.Context, key ratelimit.ClientKey, limit int, window time.Duration, now time.Time) (ratelimit.Window, bool, error)
}

func (m *RateLimitRepositoryMock) Consume(ctx context.Context, key ratelimit.ClientKey, limit int, window time.Duration, now time.Time) (ratelimit.Window, bool, error) {
	if m.ConsumeFn != nil {
		return m.ConsumeFn(ctx, key, limit, window, now)
	}
	return ratelimit.Window{Count: 1, ResetAt: now.Add(window)}, true, nil
}

// RateLimiterServiceMock admits everything unless AdmitFn is set.
type RateLimiterServiceMock struct {
	AdmitFn  func(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error)
	PolicyFn func() ratelimit.Policy
}

func (m *RateLimiterServiceMock) Admit(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error) {
	if m.AdmitFn != nil {
		return m.AdmitFn(ctx, key, now)
	}
	return ratelimit.Decision{Admitted: true, Count: 1, Limit: 10, Remaining: 9, ResetAt: now.Add(time.Minute)}, nil
}
func (m *RateLimiterServiceMock) Policy() ratelimit.Policy {
	if m.PolicyFn != nil {
		return m.PolicyFn()
	}
	return ratelimit.DefaultPolicy()
}

// CampaignServiceMock is a lightweight mock for CampaignService
type CampaignServiceMock struct {
	EnsureCampaignFn func(ctx context.Context, buildingName, serviceType string) (*campaign.Campaign, error)
	GetCampaignFn    func(ctx context.Context, id string) (*campaign.Campaign, error)
	ListCampaignsFn  func(ctx context.Context) ([]*campaign.Campaign, error)
	RecordOrderFn    func(ctx context.Context, campaignID string, fields campaign.OrderFields) (*campaign.OrderResult, error)
	SeedCatalogFn    func(ctx context.Context) ([]*campaign.Campaign, error)
}

func (m *CampaignServiceMock) EnsureCampaign(ctx context.Context, buildingName, serviceType string) (*campaign.Campaign, error) {
	if m.EnsureCampaignFn != nil {
		return m.EnsureCampaignFn(ctx, buildingName, serviceType)
	}
	return nil, fmt.Errorf("not implemented")
}
func (m *CampaignServiceMock) GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error) {
	if m.GetCampaignFn != nil {
		return m.GetCampaignFn(ctx, id)
	}
	return nil, campaign.ErrCampaignNotFound
}
func (m *CampaignServiceMock) ListCampaigns(ctx context.Context) ([]*campaign.Campaign, error) {
	if m.ListCampaignsFn != nil {
		return m.ListCampaignsFn(ctx)
	}
	return nil, nil
}
func (m *CampaignServiceMock) RecordOrder(ctx context.Context, campaignID string, fields campaign.OrderFields) (*campaign.OrderResult, error) {
	if m.RecordOrderFn != nil {
		return m.RecordOrderFn(ctx, campaignID, fields)
	}
	return nil, fmt.Errorf("not implemented")
}
func (m *CampaignServiceMock) SeedCatalog(ctx context.Context) ([]*campaign.Campaign, error) {
	if m.SeedCatalogFn != nil {
		return m.SeedCatalogFn(ctx)
	}
	return nil, nil
}

// OrderAdmissionServiceMock is a lightweight mock for OrderAdmissionService
type OrderAdmissionServiceMock struct {
	SubmitOrderFn func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error)
	SubscribeFn   func(ctx context.Context, key ratelimit.ClientKey, req ports.NotifyRequest) (*campaign.Subscriber, ratelimit.Decision, error)
}

func (m *OrderAdmissionServiceMock) SubmitOrder(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
	if m.SubmitOrderFn != nil {
		return m.SubmitOrderFn(ctx, key, req)
	}
	return nil, fmt.Errorf("not implemented")
}
func (m *OrderAdmissionServiceMock) Subscribe(ctx context.Context, key ratelimit.ClientKey, req ports.NotifyRequest) (*campaign.Subscriber, ratelimit.Decision, error) {
	if m.SubscribeFn != nil {
		return m.SubscribeFn(ctx, key, req)
	}
	return nil, ratelimit.Decision{}, fmt.Errorf("not implemented")
}

// SubscriberRepositoryMock is a lightweight mock for SubscriberRepository
type SubscriberRepositoryMock struct {
	UpsertFn func(ctx context.Context, s *campaign.Subscriber) (*campaign.Subscriber, error)
	Calls    int
}

func (m *SubscriberRepositoryMock) Upsert(ctx context.Context, s *campaign.Subscriber) (*campaign.Subscriber, error) {
	m.Calls++
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, s)
	}
	return s, nil
}

// CacheMock is an in-memory ports.Cache that records hits.
type CacheMock struct {
	Data map[string][]byte
	Hits int
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok := m.Data[key]; ok {
		m.Hits++
		return b, true, nil
	}
	return nil, false, nil
}
func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.Data == nil {
		m.Data = make(map[string][]byte)
	}
	m.Data[key] = value
	return nil
}
func (m *CacheMock) Delete(ctx context.Context, key string) error {
	delete(m.Data, key)
	return nil
}

// HealthCheckerMock reports CheckFn's result under NameValue.
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

var (
	_ ports.RateLimitRepository   = (*RateLimitRepositoryMock)(nil)
	_ ports.RateLimiterService    = (*RateLimiterServiceMock)(nil)
	_ ports.CampaignService       = (*CampaignServiceMock)(nil)
	_ ports.OrderAdmissionService = (*OrderAdmissionServiceMock)(nil)
	_ ports.SubscriberRepository  = (*SubscriberRepositoryMock)(nil)
	_ ports.Cache                 = (*CacheMock)(nil)
	_ ports.HealthChecker         = (*HealthCheckerMock)(nil)
)
