package services

import (
	"context"
	"time"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiterService implements a fixed-window admission policy per client key.
type RateLimiterService struct {
	repo     ports.RateLimitRepository
	policy   ratelimit.Policy
	failOpen bool
	logger   *logrus.Logger
	// rejections are logged at most once per second; a burst of 429s is summarised by the metrics.
	rejectLog *rate.Sometimes
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
	Scope       string
	// FailOpen admits requests when the ledger itself errors (e.g. Redis down).
	FailOpen bool
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	// Apply defaults
	p := ratelimit.DefaultPolicy()
	failOpen := true
	if cfg != nil {
		if cfg.MaxRequests > 0 {
			p.MaxRequests = cfg.MaxRequests
		}
		if cfg.Window > 0 {
			p.Window = cfg.Window
		}
		if cfg.Scope != "" {
			p.Scope = cfg.Scope
		}
		failOpen = cfg.FailOpen
	}
	return &RateLimiterService{
		repo:      repo,
		policy:    p,
		failOpen:  failOpen,
		logger:    logger,
		rejectLog: &rate.Sometimes{Interval: time.Second},
	}
}

func (s *RateLimiterService) Policy() ratelimit.Policy { return s.policy }

// Admit consumes one unit of key's window. A rejection is reported in the Decision, not as an error;
// the error return is reserved for ledger faults.
func (s *RateLimiterService) Admit(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error) {
	w, admitted, err := s.repo.Consume(ctx, key, s.policy.MaxRequests, s.policy.Window, now)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"client": key, "fail_open": s.failOpen}).WithError(err).Error("rate limiter: failed to consume window")
		}
		d := ratelimit.Decision{Admitted: s.failOpen, Limit: s.policy.MaxRequests, ResetAt: now.Add(s.policy.Window)}
		return d, err
	}

	d := ratelimit.Decision{
		Admitted: admitted,
		Count:    w.Count,
		Limit:    s.policy.MaxRequests,
		ResetAt:  w.ResetAt,
	}
	if admitted {
		d.Remaining = s.policy.MaxRequests - w.Count
	}
	if s.logger != nil {
		if admitted {
			s.logger.WithFields(logrus.Fields{"client": key, "count": w.Count, "limit": d.Limit}).Debug("rate limiter window state")
		} else {
			s.rejectLog.Do(func() {
				s.logger.WithFields(logrus.Fields{"client": key, "limit": d.Limit, "reset_at": w.ResetAt}).Warn("rate limiter: request rejected")
			})
		}
	}
	return d, nil
}
