package providers

import (
	"context"
	"sync"
	"time"
)

// defaultRPS applies when an analyzer is configured without a rate limit.
const defaultRPS = 2.0

// RateLimiter is a token bucket shared by every request an analyzer makes.
// The bucket holds up to one second of tokens.
type RateLimiter struct {
	mu sync.Mutex

	rps   float64
	burst float64

	tokens     float64
	lastUpdate time.Time
	// pausedUntil blocks all requests after a 429 with Retry-After.
	pausedUntil time.Time

	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RPS             float64       `json:"rps"`
	TokensAvailable int           `json:"tokens_available"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitzero"`
}

// NewRateLimiter creates a limiter allowing rps requests per second.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := rps
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:        rps,
		burst:      burst,
		tokens:     burst,
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.refill(now)

		var wait time.Duration
		switch {
		case now.Before(r.pausedUntil):
			wait = r.pausedUntil.Sub(now)
		case r.tokens >= 1.0:
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		default:
			wait = r.untilTokenLocked()
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.totalWaited += wait
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.refill(now)
	if now.Before(r.pausedUntil) || r.tokens < 1.0 {
		return false
	}
	r.tokens--
	r.totalConsumed++
	return true
}

// Record429 drains the bucket and, when the server sent Retry-After,
// holds every request until that time has passed.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429Time = now
	r.tokens = 0
	if retryAfter > 0 {
		if until := now.Add(retryAfter); until.After(r.pausedUntil) {
			r.pausedUntil = until
		}
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.refill(now)

	var until time.Duration
	if now.Before(r.pausedUntil) {
		until = r.pausedUntil.Sub(now)
	} else if r.tokens < 1.0 {
		until = r.untilTokenLocked()
	}

	return RateLimiterStatus{
		RPS:             r.rps,
		TokensAvailable: int(r.tokens),
		TimeUntilToken:  until,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// refill must be called with the lock held.
func (r *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now
	r.tokens += elapsed * r.rps
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
}

func (r *RateLimiter) untilTokenLocked() time.Duration {
	needed := 1.0 - r.tokens
	d := time.Duration(needed / r.rps * float64(time.Second))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
