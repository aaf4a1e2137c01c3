package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
)

// fixedWindowScript checks and increments a client window in one atomic step.
// A rejected call leaves the counter untouched.
// KEYS[1] window key, ARGV[1] limit, ARGV[2] window in ms.
// Returns {count, ttl_ms, admitted}.
var fixedWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  redis.call("SET", KEYS[1], 1, "PX", window)
  return {1, window, 1}
end
local count = tonumber(redis.call("GET", KEYS[1]))
if count < limit then
  count = redis.call("INCR", KEYS[1])
  return {count, ttl, 1}
end
return {count, ttl, 0}
`)

// RateLimitRedisRepository implements the fixed-window ledger with Redis so several
// instances share one view of each client.
type RateLimitRedisRepository struct {
	r         redis.Cmdable
	keyPrefix string
}

func NewRateLimitRedisRepository(r redis.Cmdable, keyPrefix string) *RateLimitRedisRepository {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:client"
	}
	return &RateLimitRedisRepository{r: r, keyPrefix: keyPrefix}
}

// Consume implements ports.RateLimitRepository. Window expiry follows the Redis server clock;
// ResetAt is reported relative to now.
func (repo *RateLimitRedisRepository) Consume(ctx context.Context, key ratelimit.ClientKey, limit int, window time.Duration, now time.Time) (ratelimit.Window, bool, error) {
	k := fmt.Sprintf("%s:%s", repo.keyPrefix, key)
	res, err := fixedWindowScript.Run(ctx, repo.r, []string{k}, limit, window.Milliseconds()).Result()
	if err != nil {
		return ratelimit.Window{}, false, fmt.Errorf("fixed window script: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return ratelimit.Window{}, false, fmt.Errorf("fixed window script: unexpected reply %v", res)
	}
	count, _ := vals[0].(int64)
	ttl, _ := vals[1].(int64)
	admitted, _ := vals[2].(int64)
	return ratelimit.Window{
		Count:   int(count),
		ResetAt: now.Add(time.Duration(ttl) * time.Millisecond),
	}, admitted == 1, nil
}
