package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// RateLimitConfig tunes the per-client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		BurstSize:         100,
	}
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *tokenBucket) retryAfter() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refillRate <= 0 {
		return 1
	}
	return int((1-b.tokens)/b.refillRate) + 1
}

type rateLimiterStore struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	config  RateLimitConfig
}

func (s *rateLimiterStore) bucket(key string) *tokenBucket {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[key]; ok {
		return b
	}
	b = newTokenBucket(s.config.RequestsPerSecond, s.config.BurstSize)
	s.buckets[key] = b
	return b
}

// RateLimit throttles callers by client IP. The directory is a public read
// API, so over-limit requests get a 429 OperationOutcome with Retry-After.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := &rateLimiterStore{buckets: make(map[string]*tokenBucket), config: cfg}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := store.bucket(c.RealIP())

			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64))
			if !b.allow() {
				c.Response().Header().Set("Retry-After", strconv.Itoa(b.retryAfter()))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return fhir.JSON(c, http.StatusTooManyRequests,
					fhir.NewOperationOutcome("error", "throttled", "rate limit exceeded"))
			}

			return next(c)
		}
	}
}
