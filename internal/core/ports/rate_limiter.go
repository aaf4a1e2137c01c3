package ports

import (
	"context"
	"time"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
)

// RateLimitRepository holds the per-client fixed windows. Implementations must be
// safe for concurrent use: the check and the increment are one atomic step, so two
// concurrent callers for a key at its limit are never both admitted.
type RateLimitRepository interface {
	// Consume counts one request for key at now. It starts a fresh window
	// {1, now+window} when none exists or the current one expired, increments
	// when count < limit, and otherwise leaves the window untouched and returns admitted=false.
	Consume(ctx context.Context, key ratelimit.ClientKey, limit int, window time.Duration, now time.Time) (w ratelimit.Window, admitted bool, err error)
}

// RateLimiterService decides admission for mutating requests.
// Rejection is a normal Decision, never an error.
type RateLimiterService interface {
	Admit(ctx context.Context, key ratelimit.ClientKey, now time.Time) (ratelimit.Decision, error)
	Policy() ratelimit.Policy
}
