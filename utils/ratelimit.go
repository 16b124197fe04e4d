package utils

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter controls the rate of command execution per user and command
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	now      func() time.Time

	sweepEvery time.Duration
	lastSweep  time.Time
}

// NewRateLimiter allows perMinute invocations per user+command, refilling evenly
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,

		sweepEvery: 10 * time.Minute,
	}
}

func (rl *RateLimiter) limiter(userID, command string) *rate.Limiter {
	key := userID + ":" + command

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweep(rl.now())
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// sweep drops limiters that have refilled completely, since a fresh limiter
// behaves the same. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.sweepEvery {
		return
	}
	rl.lastSweep = now
	for key, l := range rl.limiters {
		if l.TokensAt(now) >= float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
}

// Len returns the number of tracked user+command limiters
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Allow reports whether the user may run the command now, consuming a token if so
func (rl *RateLimiter) Allow(userID, command string) bool {
	return rl.limiter(userID, command).AllowN(rl.now(), 1)
}

// RetryAfter returns how long until the next invocation would be allowed
func (rl *RateLimiter) RetryAfter(userID, command string) time.Duration {
	l := rl.limiter(userID, command)
	now := rl.now()
	r := l.ReserveN(now, 1)
	if !r.OK() {
		return time.Minute
	}
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return delay
}
