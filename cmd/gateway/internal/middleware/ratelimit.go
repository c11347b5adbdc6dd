package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mindsage/analyzer/internal/auth"
	"github.com/mindsage/analyzer/internal/metrics"
)

// RateLimiter limits requests per user. With a Redis client it uses a shared
// fixed one-minute window; without one it falls back to an in-process token
// bucket per user.
type RateLimiter struct {
	redis             *redis.Client
	logger            *zap.Logger
	requestsPerMinute int
	now               func() time.Time

	mu    sync.Mutex
	local map[string]*localBucket
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localIdleTTL is how long an untouched bucket is kept. A bucket idle for a
// full minute has refilled, so dropping it does not change any decision.
const localIdleTTL = time.Minute

// NewRateLimiter creates a new rate limiter. redis may be nil. A
// non-positive requestsPerMinute disables limiting.
func NewRateLimiter(redis *redis.Client, requestsPerMinute int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:             redis,
		logger:            logger,
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
		local:             make(map[string]*localBucket),
	}
}

// Middleware returns the HTTP middleware function
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.requestsPerMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		userCtx, ok := auth.UserFromContext(r.Context())
		if !ok {
			// If no user context, skip rate limiting (auth will handle it)
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:user:%s", userCtx.UserID)

		var (
			allowed   bool
			remaining int
			resetAt   time.Time
		)
		if rl.redis != nil {
			allowed, remaining, resetAt = rl.checkRateLimit(r.Context(), key)
		} else {
			allowed, remaining, resetAt = rl.checkLocal(key)
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerMinute))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))

		if !allowed {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("user_id", userCtx.UserID),
				zap.String("path", r.URL.Path),
			)
			metrics.RateLimited.Inc()

			retryAfter := resetAt.Unix() - rl.now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			rl.sendRateLimitError(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// checkRateLimit counts the request in the current Redis window.
func (rl *RateLimiter) checkRateLimit(ctx context.Context, key string) (allowed bool, remaining int, resetAt time.Time) {
	now := rl.now()
	window := now.Truncate(time.Minute)
	windowKey := fmt.Sprintf("%s:%d", key, window.Unix())

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, time.Minute+time.Second)
	_, err := pipe.Exec(ctx)

	if err != nil {
		rl.logger.Error("Rate limit check failed", zap.Error(err))
		// On error, allow the request (fail open)
		return true, rl.requestsPerMinute, window.Add(time.Minute)
	}

	count := incr.Val()
	remaining = rl.requestsPerMinute - int(count)
	if remaining < 0 {
		remaining = 0
	}

	resetAt = window.Add(time.Minute)
	allowed = count <= int64(rl.requestsPerMinute)

	return allowed, remaining, resetAt
}

func (rl *RateLimiter) checkLocal(key string) (allowed bool, remaining int, resetAt time.Time) {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.local[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.requestsPerMinute)), rl.requestsPerMinute)}
		rl.local[key] = b
	}
	b.lastSeen = now
	lim := b.limiter
	rl.mu.Unlock()

	allowed = lim.AllowN(now, 1)
	remaining = int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	// Time until one more token is available.
	resetAt = now.Add(time.Minute / time.Duration(rl.requestsPerMinute))
	return allowed, remaining, resetAt
}

// StartJanitor evicts idle local buckets every interval until ctx is done.
// It is a no-op when Redis backs the limiter.
func (rl *RateLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if rl.redis != nil || rl.requestsPerMinute <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := rl.evictIdle(rl.now()); n > 0 {
					rl.logger.Debug("Evicted idle rate limit buckets", zap.Int("count", n))
				}
			}
		}
	}()
}

func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	evicted := 0
	for key, b := range rl.local {
		if now.Sub(b.lastSeen) >= localIdleTTL {
			delete(rl.local, key)
			evicted++
		}
	}
	return evicted
}

// sendRateLimitError sends a rate limit exceeded error response
func (rl *RateLimiter) sendRateLimitError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]interface{}{
		"error":   "Rate limit exceeded",
		"message": "Too many requests. Please retry after the rate limit window resets.",
	}

	json.NewEncoder(w).Encode(response)
}
