package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bumps the window counter and arms its expiry on first use.
const incrScript = `
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`

// Evaler is the part of *redis.Client the limiter needs.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLimiter counts requests in fixed windows shared by every server
// instance. A window admits BurstSize requests and lasts as long as the
// token bucket would need to refill them, one second at least.
type RedisLimiter struct {
	client Evaler
	prefix string
	burst  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client Evaler, cfg RateLimitConfig) *RedisLimiter {
	window := time.Second
	if cfg.RequestsPerSecond > 0 {
		if w := time.Duration(float64(cfg.BurstSize) / cfg.RequestsPerSecond * float64(time.Second)); w > window {
			window = w
		}
	}
	return &RedisLimiter{
		client: client,
		prefix: "clinic:ratelimit:",
		burst:  int64(cfg.BurstSize),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	now := l.now()
	slot := now.UnixNano() / int64(l.window)
	k := l.prefix + key + ":" + strconv.FormatInt(slot, 10)

	n, err := l.client.Eval(ctx, incrScript, []string{k}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}
	if n <= l.burst {
		return true, 0, nil
	}
	end := time.Unix(0, (slot+1)*int64(l.window))
	return false, int(math.Ceil(end.Sub(now).Seconds())), nil
}

// NewRedisClient connects to the server at url (redis://host:port/db) and
// checks it answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
