package agent

import (
	"sync"
	"time"
)

// RateLimiter enforces a per-user sliding window over chat requests.
type RateLimiter struct {
	mu        sync.Mutex
	perMinute int
	window    time.Duration
	hits      map[string][]time.Time
	now       func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		window:    time.Minute,
		hits:      make(map[string][]time.Time),
		now:       time.Now,
	}
}

// Allow records an attempt for userID and reports whether it fits in the
// window. A non-positive limit disables limiting.
func (rl *RateLimiter) Allow(userID string) bool {
	if rl.perMinute <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	recent := rl.hits[userID][:0]
	for _, t := range rl.hits[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= rl.perMinute {
		rl.hits[userID] = recent
		return false
	}
	rl.hits[userID] = append(recent, now)
	return true
}
