package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/sirupsen/logrus"
)

// RateLimitMemoryRepository is a single-process fixed-window ledger.
// The map lock is held only to find or insert an entry; the check-and-increment
// runs under the entry's own lock so unrelated clients never contend.
type RateLimitMemoryRepository struct {
	mu      sync.Mutex
	entries map[ratelimit.ClientKey]*windowEntry
	grace   time.Duration
	logger  *logrus.Logger
}

type windowEntry struct {
	mu     sync.Mutex
	window ratelimit.Window
	// removed is set by Sweep; holders of a stale pointer must look the key up again.
	removed bool
}

func NewRateLimitMemoryRepository(grace time.Duration, logger *logrus.Logger) *RateLimitMemoryRepository {
	if grace < 0 {
		grace = 0
	}
	return &RateLimitMemoryRepository{
		entries: make(map[ratelimit.ClientKey]*windowEntry),
		grace:   grace,
		logger:  logger,
	}
}

func (r *RateLimitMemoryRepository) entry(key ratelimit.ClientKey) *windowEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &windowEntry{}
		r.entries[key] = e
	}
	return e
}

// Consume implements ports.RateLimitRepository.
func (r *RateLimitMemoryRepository) Consume(ctx context.Context, key ratelimit.ClientKey, limit int, window time.Duration, now time.Time) (ratelimit.Window, bool, error) {
	if err := ctx.Err(); err != nil {
		return ratelimit.Window{}, false, err
	}
	for {
		e := r.entry(key)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		admitted := true
		switch {
		case e.window.ResetAt.IsZero() || e.window.Expired(now):
			e.window = ratelimit.Window{Count: 1, ResetAt: now.Add(window)}
		case e.window.Count < limit:
			e.window.Count++
		default:
			admitted = false
		}
		w := e.window
		e.mu.Unlock()
		return w, admitted, nil
	}
}

// Len returns the number of tracked client windows.
func (r *RateLimitMemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops windows that reset more than the grace period before now and returns how many were removed.
func (r *RateLimitMemoryRepository) Sweep(now time.Time) int {
	cutoff := now.Add(-r.grace)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for k, e := range r.entries {
		e.mu.Lock()
		if !e.window.ResetAt.IsZero() && e.window.ResetAt.Before(cutoff) {
			e.removed = true
			delete(r.entries, k)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// StartJanitor sweeps stale windows every interval until ctx is done.
func (r *RateLimitMemoryRepository) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if n := r.Sweep(now); n > 0 && r.logger != nil {
					r.logger.WithField("removed", n).Debug("rate limit ledger swept")
				}
			}
		}
	}()
}
