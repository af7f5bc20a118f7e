package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewStore),
	fx.Provide(NewTieredLimiter),
)

// NewStore picks the backend: redis when an address is configured, otherwise
// the in-process store.
func NewStore(cfg config.Config, clk clock.Clock, log *zap.Logger) Store {
	if cfg.RateLimit.RedisAddr == "" {
		return NewMemoryStore(clk)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	log.Info("rate limiter using redis backend", zap.String("addr", cfg.RateLimit.RedisAddr))
	return NewRedisStore(client)
}
