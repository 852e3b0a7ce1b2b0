package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evyataryagoni/geoip-service/internal/logger"
)

const rateLimitKeyPrefix = "ratelimit:"

// fixedWindowScript counts a request in the current window and returns the count.
// KEYS[1] = window key, ARGV[1] = window TTL in milliseconds
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter shared by every instance that
// points at the same Redis. Keys look like "ratelimit:<client>:<window>".
type RedisLimiter struct {
	client *redis.Client
	ctx    context.Context
	limit  int64
	window time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewRedisLimiter connects to Redis and allows limit requests per window per client
func NewRedisLimiter(addr, password string, db, limit int, window time.Duration, log *logger.Logger) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}

	return NewRedisLimiterWithClient(client, limit, window, log), nil
}

// NewRedisLimiterWithClient wraps an existing client. The limiter takes
// ownership of client and closes it in Close.
func NewRedisLimiterWithClient(client *redis.Client, limit int, window time.Duration, log *logger.Logger) *RedisLimiter {
	if limit < 1 {
		limit = 1
	}
	if window < time.Millisecond {
		window = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	return &RedisLimiter{
		client: client,
		ctx:    context.Background(),
		limit:  int64(limit),
		window: window,
		now:    time.Now,
		logger: log.WithComponent("RedisLimiter"),
	}
}

// Allow implements Limiter. Redis failures let the request through.
func (l *RedisLimiter) Allow(key string) bool {
	count, err := fixedWindowScript.Run(l.ctx, l.client,
		[]string{l.windowKey(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Error().Err(err).Str("client", key).Msg("Rate limit check failed, allowing request")
		return true
	}
	return count <= l.limit
}

func (l *RedisLimiter) windowKey(key string) string {
	window := l.now().UnixMilli() / l.window.Milliseconds()
	return fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, window)
}

// Close implements Limiter
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
