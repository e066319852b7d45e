package framelai

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket that paces remote translation requests.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
}

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"` // Sustained request rate
	BurstSize         int `mapstructure:"burst_size"`          // Bucket capacity (default: 1)
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = 60
	}

	burst := float64(cfg.BurstSize)
	if burst <= 0 {
		burst = 1
	}

	return &RateLimiter{
		tokens:     burst,
		capacity:   burst,
		perSecond:  rpm / 60.0,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserve()
		if wait == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// TryAcquire takes a token if one is available.
func (r *RateLimiter) TryAcquire() bool {
	return r.reserve() == 0
}

// reserve takes a token and returns 0, or returns how long until one is
// available.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	missing := 1 - r.tokens
	return time.Duration(missing / r.perSecond * float64(time.Second))
}

// refill must be called with the lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	r.tokens += now.Sub(r.lastRefill).Seconds() * r.perSecond
	r.lastRefill = now
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
}

// Available returns the current number of tokens.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	return r.tokens
}

// RateLimitedTranslator wraps a RemoteTranslator with rate limiting.
type RateLimitedTranslator struct {
	remote  RemoteTranslator
	limiter *RateLimiter
}

// NewRateLimitedTranslator creates a new rate-limited translator.
func NewRateLimitedTranslator(remote RemoteTranslator, cfg RateLimitConfig) *RateLimitedTranslator {
	return &RateLimitedTranslator{
		remote:  remote,
		limiter: NewRateLimiter(cfg),
	}
}

// Translate implements RemoteTranslator with rate limiting.
func (r *RateLimitedTranslator) Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return TranslateResponse{}, &ProviderError{
			Message:   "rate limit wait cancelled",
			Cause:     err,
			Retryable: false,
		}
	}
	return r.remote.Translate(ctx, req)
}

// Limiter returns the underlying rate limiter for inspection.
func (r *RateLimitedTranslator) Limiter() *RateLimiter {
	return r.limiter
}

// Verify RateLimitedTranslator implements RemoteTranslator
var _ RemoteTranslator = (*RateLimitedTranslator)(nil)
