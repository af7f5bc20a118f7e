package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/warden/internal/config"
	"github.com/smallbiznis/warden/internal/observability/metrics"
	"go.uber.org/zap"
)

// Tier names one of the three independent limiter scopes.
type Tier string

const (
	TierGlobal Tier = "global"
	TierAPI    Tier = "api"
	TierAuth   Tier = "auth"
)

type tierLimits struct {
	rate  float64
	burst int
}

// TieredLimiter applies per-IP token buckets for the global, api and auth
// tiers. Each tier keeps its own bucket per IP, so exhausting one tier does
// not touch the others.
type TieredLimiter struct {
	store   Store
	log     *zap.Logger
	metrics *metrics.Metrics
	tiers   map[Tier]tierLimits
}

func NewTieredLimiter(cfg config.Config, store Store, log *zap.Logger, m *metrics.Metrics) *TieredLimiter {
	return &TieredLimiter{
		store:   store,
		log:     log.Named("ratelimit"),
		metrics: m,
		tiers: map[Tier]tierLimits{
			TierGlobal: {rate: cfg.RateLimit.GlobalRate, burst: cfg.RateLimit.GlobalBurst},
			TierAPI:    {rate: cfg.RateLimit.APIRate, burst: cfg.RateLimit.APIBurst},
			TierAuth:   {rate: cfg.RateLimit.AuthRate, burst: cfg.RateLimit.AuthBurst},
		},
	}
}

// Allow takes one token from the tier's bucket for the IP. A backend failure
// is logged and the request is admitted; throttling degrades open.
func (l *TieredLimiter) Allow(ctx context.Context, tier Tier, ip string) *Result {
	limits, ok := l.tiers[tier]
	if !ok {
		l.log.Error("unknown rate limit tier", zap.String("tier", string(tier)))
		return &Result{Allowed: true}
	}

	key := fmt.Sprintf("ratelimit:%s:%s", tier, ip)
	res, err := l.store.Allow(ctx, key, limits.rate, limits.burst)
	if err != nil {
		l.log.Error("rate limit backend failed, allowing request",
			zap.String("tier", string(tier)),
			zap.String("ip", ip),
			zap.Error(err),
		)
		return &Result{Allowed: true, Limit: limits.burst}
	}

	if res.Allowed {
		l.metrics.RecordRateLimitAllowed(string(tier))
	} else {
		l.metrics.RecordRateLimitDenied(string(tier))
		if res.RetryAfter < time.Second {
			res.RetryAfter = time.Second
		}
	}
	return res
}
