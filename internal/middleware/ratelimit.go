// Package middleware provides HTTP middleware for the verification API.
package middleware

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/config"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

const rateLimitShards = 16

// slidingWindowScript atomically records a hit against a client's sorted-set
// history and flips the client into a block once the window overflows.
// Returns {allowed, retry_after_seconds}.
var slidingWindowScript = redis.NewScript(`
local hits = KEYS[1]
local block = KEYS[2]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local block_sec = tonumber(ARGV[4])

local ttl = redis.call("TTL", block)
if ttl > 0 then
	return {0, ttl}
end

redis.call("ZREMRANGEBYSCORE", hits, 0, now - window)
redis.call("ZADD", hits, now, ARGV[5])
redis.call("PEXPIRE", hits, window)

local count = redis.call("ZCARD", hits)
if count > limit then
	redis.call("SET", block, "1", "EX", block_sec)
	redis.call("DEL", hits)
	return {0, block_sec}
end
return {1, 0}
`)

// RateLimiter enforces a per-client sliding window with temporary blocking.
// With Redis the state is shared across replicas; without it a sharded
// in-process map serves as fallback. Either way this is defense in depth,
// not the security boundary - that is the signature check.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	redis  *redis.Client
	logger *zap.Logger

	shards [rateLimitShards]*rateLimitShard

	now func() time.Time
}

type rateLimitShard struct {
	mu      sync.Mutex
	clients map[string]*clientHistory
}

type clientHistory struct {
	hits         []time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// NewRateLimiter creates a rate limiter.
//
// Parameters:
//
//	cfg: Window size, limit, block duration, sweep interval.
//	redisClient: Shared counter backend (optional, nil falls back to local).
//	logger: Logger for limiter events.
func NewRateLimiter(cfg config.RateLimitConfig, redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	rl := &RateLimiter{
		cfg:    cfg,
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
	for i := range rl.shards {
		rl.shards[i] = &rateLimitShard{clients: make(map[string]*clientHistory)}
	}
	return rl
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.clientKey(c)

		allowed, retryAfter, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open: a broken limiter backend must not take down
			// verification itself.
			rl.logger.Error("Rate limit check failed", zap.String("client", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.APIResponse{
				Status:    "error",
				Message:   "Rate limit exceeded. Please try again later.",
				Timestamp: rl.now().UTC(),
			})
			return
		}

		c.Next()
	}
}

// Allow records a hit for the client and reports whether it is within the
// limit, with the remaining block duration when it is not.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if rl.redis != nil {
		return rl.allowRedis(ctx, key)
	}
	return rl.allowLocal(key)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, time.Duration, error) {
	hitsKey := "ratelimit:hits:" + key
	blockKey := "ratelimit:block:" + key

	result, err := slidingWindowScript.Run(ctx, rl.redis,
		[]string{hitsKey, blockKey},
		rl.now().UnixMilli(),
		rl.cfg.Window.Milliseconds(),
		rl.cfg.Requests,
		int(rl.cfg.BlockDuration.Seconds()),
		uuid.NewString(),
	).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script response")
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected type for allowed value")
	}
	retrySec, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected type for retry value")
	}

	return allowed == 1, time.Duration(retrySec) * time.Second, nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, time.Duration, error) {
	shard := rl.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := rl.now()

	entry, exists := shard.clients[key]
	if !exists {
		entry = &clientHistory{}
		shard.clients[key] = entry
	}
	entry.lastSeen = now

	// Blocked clients are denied without rescanning history.
	if entry.blockedUntil.After(now) {
		return false, entry.blockedUntil.Sub(now), nil
	}

	cutoff := now.Add(-rl.cfg.Window)
	kept := entry.hits[:0]
	for _, hit := range entry.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	entry.hits = append(kept, now)

	if len(entry.hits) > rl.cfg.Requests {
		entry.blockedUntil = now.Add(rl.cfg.BlockDuration)
		entry.hits = nil
		return false, rl.cfg.BlockDuration, nil
	}

	return true, 0, nil
}

// StartSweeper launches the periodic housekeeping loop that drops idle
// client histories and cleared blocks, bounding memory. Redis keys expire
// on their own.
func (rl *RateLimiter) StartSweeper(ctx context.Context) {
	if rl.redis != nil {
		return
	}

	go func() {
		ticker := time.NewTicker(rl.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (rl *RateLimiter) sweep() {
	now := rl.now()
	idleCutoff := now.Add(-rl.cfg.Window)

	for _, shard := range rl.shards {
		shard.mu.Lock()
		for key, entry := range shard.clients {
			if entry.lastSeen.Before(idleCutoff) && !entry.blockedUntil.After(now) {
				delete(shard.clients, key)
			}
		}
		shard.mu.Unlock()
	}
}

func (rl *RateLimiter) shard(key string) *rateLimitShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return rl.shards[h.Sum32()%rateLimitShards]
}

func (rl *RateLimiter) clientKey(c *gin.Context) string {
	if rl.cfg.TrustForwardedFor {
		if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
			if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
				return strings.TrimSpace(forwarded[:idx])
			}
			return strings.TrimSpace(forwarded)
		}
	}
	return c.ClientIP()
}
