package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Client is nil when Redis is not configured or unreachable; callers treat
// that as "no cache".
var Client *redis.Client

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects Client to addr, which is either host:port or a
// redis:// / rediss:// URL. An empty addr disables the cache.
func InitRedis(ctx context.Context, addr string) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		log.Warn().Msg("REDIS_URL not set, series cache disabled")
		return
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.Error().Err(err).Msg("failed to parse REDIS_URL, series cache disabled")
			return
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pingRedis(pingCtx, client); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis unreachable, series cache disabled")
		_ = client.Close()
		return
	}

	Client = client
	log.Info().Str("addr", opts.Addr).Msg("connected to Redis")
}
