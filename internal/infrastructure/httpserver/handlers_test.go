package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/httpserver"
	tmocks "github.com/groupbuy/campaign-service/test/mocks"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestServer(deps httpserver.ServerDeps) *httpserver.Server {
	if deps.CampaignService == nil {
		deps.CampaignService = &tmocks.CampaignServiceMock{}
	}
	if deps.OrderAdmissionService == nil {
		deps.OrderAdmissionService = &tmocks.OrderAdmissionServiceMock{}
	}
	if deps.RateLimiterService == nil {
		deps.RateLimiterService = &tmocks.RateLimiterServiceMock{}
	}
	return httpserver.NewServer(&httpserver.ServerConfig{Host: "127.0.0.1", Port: "0"}, quietLogger(), deps)
}

func do(s *httpserver.Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const orderBody = `{"name":"홍길동","phone":"010-1234-5678","consent":true,"buildingName":"헬리오시티","serviceType":"유리청소"}`

func admitted() ratelimit.Decision {
	return ratelimit.Decision{Admitted: true, Count: 3, Limit: 10, Remaining: 7, ResetAt: time.Now().Add(time.Minute)}
}

func TestSubmitOrder_Success(t *testing.T) {
	var gotKey ratelimit.ClientKey
	var gotReq ports.OrderRequest
	admission := &tmocks.OrderAdmissionServiceMock{SubmitOrderFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
		gotKey, gotReq = key, req
		return &ports.SubmissionResult{OrderID: "o-1", CampaignID: "helio-glass-cleaning", CurrentOrders: 4, MinOrders: 20, Decision: admitted()}, nil
	}}
	s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission})

	rec := do(s, http.MethodPost, "/api/v1/orders", orderBody, map[string]string{
		"X-Forwarded-For": "1.2.3.4, 10.0.0.1",
		"Idempotency-Key": "abc",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "helio-glass-cleaning", body["campaignId"])
	assert.Equal(t, float64(4), body["currentOrders"])
	assert.Equal(t, float64(20), body["minOrders"])
	assert.Equal(t, false, body["duplicate"])
	assert.NotContains(t, body, "Decision")

	assert.Equal(t, ratelimit.ClientKey("1.2.3.4"), gotKey)
	assert.Equal(t, "헬리오시티", gotReq.BuildingName)
	assert.Equal(t, "abc", gotReq.Fields.IdempotencyKey)
	assert.True(t, gotReq.Fields.Consent)
	// headers come from the middleware's decision
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestSubmitOrder_ErrorMapping(t *testing.T) {
	reset := time.Now().Add(42 * time.Second)
	rejected := ratelimit.Decision{Admitted: false, Count: 10, Limit: 10, ResetAt: reset}

	cases := []struct {
		name     string
		err      error
		decision ratelimit.Decision
		code     int
		contains string
	}{
		{"rate limited", &ratelimit.RejectedError{Key: "1.2.3.4", Decision: rejected}, rejected, http.StatusTooManyRequests, "too many requests"},
		{"not found", fmt.Errorf("%w: x", campaign.ErrCampaignNotFound), admitted(), http.StatusNotFound, "this offer is no longer available"},
		{"validation", &campaign.ValidationError{Fields: []campaign.FieldError{{Field: "phone", Msg: "required"}}}, admitted(), http.StatusBadRequest, "phone"},
		{"unknown building", fmt.Errorf("%w: %q", campaign.ErrUnknownBuilding, "x"), admitted(), http.StatusBadRequest, "unknown building"},
		{"store", fmt.Errorf("record order: %w: %w", campaign.ErrStoreUnavailable, errors.New("conn reset")), admitted(), http.StatusServiceUnavailable, "temporarily unavailable"},
		{"other", errors.New("boom"), admitted(), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			admission := &tmocks.OrderAdmissionServiceMock{SubmitOrderFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
				return &ports.SubmissionResult{Decision: tc.decision}, tc.err
			}}
			s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission})

			rec := do(s, http.MethodPost, "/api/v1/orders", orderBody, nil)
			assert.Equal(t, tc.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.contains)
			assert.NotContains(t, rec.Body.String(), "conn reset")
		})
	}
}

func TestSubmitOrder_RateLimitedSetsRetryAfter(t *testing.T) {
	rejected := ratelimit.Decision{Admitted: false, Count: 10, Limit: 10, ResetAt: time.Now().Add(42 * time.Second)}
	admission := &tmocks.OrderAdmissionServiceMock{SubmitOrderFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
		return &ports.SubmissionResult{Decision: rejected}, &ratelimit.RejectedError{Key: key, Decision: rejected}
	}}
	s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission})

	rec := do(s, http.MethodPost, "/api/v1/orders", orderBody, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry := rec.Header().Get("Retry-After")
	require.NotEmpty(t, retry)
	assert.Contains(t, []string{"42", "43"}, retry)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestSubmitOrder_MalformedBody(t *testing.T) {
	called := false
	admission := &tmocks.OrderAdmissionServiceMock{SubmitOrderFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
		called = true
		return nil, nil
	}}
	s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission})

	rec := do(s, http.MethodPost, "/api/v1/orders", `{"name":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestMalformedBodyAtLimitIsRejected(t *testing.T) {
	called := false
	admission := &tmocks.OrderAdmissionServiceMock{
		SubmitOrderFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
			called = true
			return nil, nil
		},
		SubscribeFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.NotifyRequest) (*campaign.Subscriber, ratelimit.Decision, error) {
			called = true
			return nil, ratelimit.Decision{}, nil
		},
	}
	limiter := &tmocks.RateLimiterServiceMock{AdmitFn: func(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error) {
		return ratelimit.Decision{Admitted: false, Count: 10, Limit: 10, ResetAt: now.Add(30 * time.Second)}, nil
	}}
	s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission, RateLimiterService: limiter})

	for _, path := range []string{"/api/v1/orders", "/api/v1/notify"} {
		rec := do(s, http.MethodPost, path, `{"name":`, map[string]string{"X-Real-IP": "1.2.3.4"})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"), path)
	}
	assert.False(t, called)
}

func TestFailClosedLedgerFaultIsUnavailable(t *testing.T) {
	called := false
	admission := &tmocks.OrderAdmissionServiceMock{SubmitOrderFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
		called = true
		return nil, nil
	}}
	limiter := &tmocks.RateLimiterServiceMock{AdmitFn: func(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error) {
		return ratelimit.Decision{Admitted: false, Limit: 10, ResetAt: now.Add(time.Minute)}, errors.New("redis: connection refused")
	}}
	s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission, RateLimiterService: limiter})

	rec := do(s, http.MethodPost, "/api/v1/orders", orderBody, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
	assert.Empty(t, rec.Header().Get("Retry-After"))
	assert.False(t, called)
}

func TestSubmitOrder_NoProxyHeadersUsesUnknown(t *testing.T) {
	var gotKey ratelimit.ClientKey
	admission := &tmocks.OrderAdmissionServiceMock{SubmitOrderFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.OrderRequest) (*ports.SubmissionResult, error) {
		gotKey = key
		return &ports.SubmissionResult{CampaignID: "c", Decision: admitted()}, nil
	}}
	s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission})

	rec := do(s, http.MethodPost, "/api/v1/orders", orderBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ratelimit.UnknownClient, gotKey)
}

func TestSubscribe(t *testing.T) {
	var got ports.NotifyRequest
	admission := &tmocks.OrderAdmissionServiceMock{SubscribeFn: func(ctx context.Context, key ratelimit.ClientKey, req ports.NotifyRequest) (*campaign.Subscriber, ratelimit.Decision, error) {
		got = req
		return &campaign.Subscriber{Phone: req.Phone}, admitted(), nil
	}}
	s := newTestServer(httpserver.ServerDeps{OrderAdmissionService: admission})

	rec := do(s, http.MethodPost, "/api/v1/notify", `{"phone":"01012345678","building":"헬리오시티"}`, map[string]string{"X-Real-IP": "5.6.7.8"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "헬리오시티", got.Building)
}

func TestGetOrEnsureCampaign(t *testing.T) {
	svc := &tmocks.CampaignServiceMock{EnsureCampaignFn: func(ctx context.Context, buildingName, serviceType string) (*campaign.Campaign, error) {
		require.Equal(t, "헬리오시티", buildingName)
		require.Equal(t, "유리청소", serviceType)
		return &campaign.Campaign{ID: "helio-glass-cleaning", Service: serviceType, MinOrders: 20, CurrentOrders: 10}, nil
	}}
	s := newTestServer(httpserver.ServerDeps{CampaignService: svc})

	rec := do(s, http.MethodGet, "/api/v1/campaigns?buildingName=%ED%97%AC%EB%A6%AC%EC%98%A4%EC%8B%9C%ED%8B%B0&serviceType=%EC%9C%A0%EB%A6%AC%EC%B2%AD%EC%86%8C", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"campaignId":"helio-glass-cleaning","service":"유리청소","minOrders":20,"currentOrders":10,"buildingName":"헬리오시티","progress":50,"reached":false}`, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/v1/campaigns", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "buildingName")
}

func TestListCampaigns(t *testing.T) {
	svc := &tmocks.CampaignServiceMock{ListCampaignsFn: func(ctx context.Context) ([]*campaign.Campaign, error) {
		return []*campaign.Campaign{
			{ID: "helio-glass-cleaning", Service: "유리청소", MinOrders: 20, CurrentOrders: 20},
			{ID: "helio-screen-replacement", Service: "방충망교체", MinOrders: 20, CurrentOrders: 5},
		}, nil
	}}
	s := newTestServer(httpserver.ServerDeps{CampaignService: svc})

	rec := do(s, http.MethodGet, "/api/v1/campaigns/all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Campaigns []struct {
			CampaignID string `json:"campaignId"`
			Progress   int    `json:"progress"`
			Reached    bool   `json:"reached"`
		} `json:"campaigns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Campaigns, 2)
	assert.Equal(t, "helio-glass-cleaning", body.Campaigns[0].CampaignID)
	assert.Equal(t, 100, body.Campaigns[0].Progress)
	assert.True(t, body.Campaigns[0].Reached)
	assert.Equal(t, 25, body.Campaigns[1].Progress)
	assert.False(t, body.Campaigns[1].Reached)

	svc.ListCampaignsFn = func(ctx context.Context) ([]*campaign.Campaign, error) {
		return nil, fmt.Errorf("list campaigns: %w", campaign.ErrStoreUnavailable)
	}
	rec = do(s, http.MethodGet, "/api/v1/campaigns/all", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetCampaign_NotFound(t *testing.T) {
	s := newTestServer(httpserver.ServerDeps{})
	rec := do(s, http.MethodGet, "/api/v1/campaigns/helio-unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "this offer is no longer available")
}

func TestReadsAreNotCountedUnderMutatingScope(t *testing.T) {
	calls := 0
	limiter := &tmocks.RateLimiterServiceMock{AdmitFn: func(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error) {
		calls++
		return ratelimit.Decision{Admitted: false, Limit: 10, ResetAt: now.Add(time.Minute)}, nil
	}}
	svc := &tmocks.CampaignServiceMock{GetCampaignFn: func(ctx context.Context, id string) (*campaign.Campaign, error) {
		return &campaign.Campaign{ID: id, MinOrders: 20}, nil
	}}
	s := newTestServer(httpserver.ServerDeps{CampaignService: svc, RateLimiterService: limiter})

	for i := 0; i < 20; i++ {
		rec := do(s, http.MethodGet, "/api/v1/campaigns/helio-glass-cleaning", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 0, calls)

	limiter.PolicyFn = func() ratelimit.Policy {
		p := ratelimit.DefaultPolicy()
		p.Scope = ratelimit.ScopeAll
		return p
	}
	rec := do(s, http.MethodGet, "/api/v1/campaigns/helio-glass-cleaning", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestSeedCatalog_GuardedByAdmission(t *testing.T) {
	seeded := 0
	svc := &tmocks.CampaignServiceMock{SeedCatalogFn: func(ctx context.Context) ([]*campaign.Campaign, error) {
		seeded++
		return []*campaign.Campaign{{ID: "helio-glass-cleaning", MinOrders: 20}}, nil
	}}
	allow := true
	limiter := &tmocks.RateLimiterServiceMock{AdmitFn: func(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error) {
		return ratelimit.Decision{Admitted: allow, Count: 1, Limit: 10, ResetAt: now.Add(time.Minute)}, nil
	}}
	s := newTestServer(httpserver.ServerDeps{CampaignService: svc, RateLimiterService: limiter})

	rec := do(s, http.MethodPost, "/api/v1/setup", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "helio-glass-cleaning")

	allow = false
	rec = do(s, http.MethodPost, "/api/v1/setup", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, seeded)
}

func TestHealthCheck(t *testing.T) {
	limiter := &tmocks.RateLimiterServiceMock{PolicyFn: func() ratelimit.Policy {
		return ratelimit.Policy{MaxRequests: 10, Window: time.Minute, Scope: ratelimit.ScopeMutatingOnly}
	}}
	cfg := &httpserver.ServerConfig{Host: "127.0.0.1", Port: "0", StoreBackend: "postgres", LedgerBackend: "redis"}
	ok := &tmocks.HealthCheckerMock{NameValue: "database"}
	s := httpserver.NewServer(cfg, quietLogger(), httpserver.ServerDeps{
		CampaignService:       &tmocks.CampaignServiceMock{},
		OrderAdmissionService: &tmocks.OrderAdmissionServiceMock{},
		RateLimiterService:    limiter,
		HealthCheckers:        []ports.HealthChecker{ok},
	})
	rec := do(s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Store  map[string]string `json:"store"`
		Admission struct {
			Backend     string `json:"backend"`
			MaxRequests int    `json:"max_requests"`
			Window      string `json:"window"`
			Scope       string `json:"scope"`
		} `json:"admission"`
		Dependencies map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "postgres", body.Store["backend"])
	assert.Equal(t, "redis", body.Admission.Backend)
	assert.Equal(t, 10, body.Admission.MaxRequests)
	assert.Equal(t, "1m0s", body.Admission.Window)
	assert.Equal(t, ratelimit.ScopeMutatingOnly, body.Admission.Scope)
	assert.Equal(t, "healthy", body.Dependencies["database"].Status)

	bad := &tmocks.HealthCheckerMock{NameValue: "redis", CheckFn: func(ctx context.Context) error { return errors.New("dial tcp 10.0.0.5:6379: refused") }}
	s = httpserver.NewServer(cfg, quietLogger(), httpserver.ServerDeps{
		RateLimiterService: limiter,
		HealthCheckers:     []ports.HealthChecker{ok, bad},
	})
	rec = do(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unhealthy", body.Dependencies["redis"].Status)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestHealthCheck_MemoryBackendsByDefault(t *testing.T) {
	s := newTestServer(httpserver.ServerDeps{})
	rec := do(s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":{"backend":"memory"}`)
	assert.Contains(t, rec.Body.String(), `"dependencies":{}`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(httpserver.ServerDeps{})
	_ = do(s, http.MethodGet, "/api/v1/campaigns/x", "", nil)
	rec := do(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
