package auth

import (
	"log/slog"
	"sync"
	"time"
)

// RateLimitConfig bounds how fast one client may fail reviewer
// authentication.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// DefaultRateLimitConfig allows a short burst of typos, then one attempt
// every few seconds.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{PerMinute: 20, Burst: 5}
}

// RateLimiter is a token bucket per client key. Only failed attempts
// consume tokens, so a reviewer with the right token is never slowed down.
type RateLimiter struct {
	config  RateLimitConfig
	buckets map[string]*tokenBucket
	mu      sync.Mutex
	logger  *slog.Logger
	now     func() time.Time
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter; zero fields take defaults.
func NewRateLimiter(config RateLimitConfig, logger *slog.Logger) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.PerMinute <= 0 {
		config.PerMinute = def.PerMinute
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
		logger:  logger,
		now:     time.Now,
	}
}

// Blocked reports whether key has exhausted its attempts, and how many
// seconds until the next one is allowed.
func (r *RateLimiter) Blocked(key string) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.refill(key)
	if b.tokens >= 1 {
		return false, 0
	}
	perSecond := float64(r.config.PerMinute) / 60.0
	return true, int((1-b.tokens)/perSecond) + 1
}

// Fail records a failed attempt for key.
func (r *RateLimiter) Fail(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.refill(key)
	if b.tokens > 0 {
		b.tokens--
	}
	if b.tokens < 1 && r.logger != nil {
		r.logger.Warn("Reviewer authentication throttled", "client", key)
	}
}

// Reset forgets key, typically after a successful attempt.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, key)
}

// refill must be called with mu held.
func (r *RateLimiter) refill(key string) *tokenBucket {
	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(r.config.Burst), lastRefill: now}
		r.buckets[key] = b
		return b
	}
	elapsed := now.Sub(b.lastRefill)
	b.lastRefill = now
	b.tokens += elapsed.Seconds() * float64(r.config.PerMinute) / 60.0
	if b.tokens > float64(r.config.Burst) {
		b.tokens = float64(r.config.Burst)
	}
	return b
}
