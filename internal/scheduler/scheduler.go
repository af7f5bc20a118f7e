package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobTimeout = 30 * time.Second

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Security securitydomain.Ledger
	Clock    clock.Clock
}

// Scheduler owns the background sweeps: expired IP blocks on a short cadence,
// old abuse-ledger rows on a long one. Sweeps are idempotent, so running one
// twice is harmless.
type Scheduler struct {
	log      *zap.Logger
	security securitydomain.Ledger
	clock    clock.Clock

	blockInterval   time.Duration
	attemptInterval time.Duration
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Security == nil || p.Clock == nil {
		return nil, errors.New("scheduler: missing dependency")
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler"),
		security:        p.Security,
		clock:           p.Clock,
		blockInterval:   p.Config.Sweep.BlockInterval,
		attemptInterval: p.Config.Sweep.AttemptInterval,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int64, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()

	removed, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.log.Warn("sweep timed out",
				zap.String("job", name),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	s.log.Debug("sweep finished",
		zap.String("job", name),
		zap.Int64("removed", removed),
		zap.Duration("duration", duration),
	)
	return nil
}

// SweepBlocksOnce removes blocks whose expiry has passed.
func (s *Scheduler) SweepBlocksOnce(ctx context.Context) error {
	return s.runJob(ctx, "sweep_expired_blocks", s.security.SweepExpiredBlocks)
}

// SweepAttemptsOnce removes ledger rows past the retention cutoff.
func (s *Scheduler) SweepAttemptsOnce(ctx context.Context) error {
	return s.runJob(ctx, "sweep_old_attempts", s.security.SweepOldAttempts)
}

// RunForever runs both sweeps immediately, then on their configured
// intervals, until the context is canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	if err := s.SweepBlocksOnce(ctx); err != nil {
		s.log.Warn("sweep run failed", zap.Error(err))
	}
	if err := s.SweepAttemptsOnce(ctx); err != nil {
		s.log.Warn("sweep run failed", zap.Error(err))
	}

	blockTicker := time.NewTicker(s.blockInterval)
	defer blockTicker.Stop()
	attemptTicker := time.NewTicker(s.attemptInterval)
	defer attemptTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-blockTicker.C:
			if err := s.SweepBlocksOnce(ctx); err != nil {
				s.log.Warn("sweep run failed", zap.Error(err))
			}
		case <-attemptTicker.C:
			if err := s.SweepAttemptsOnce(ctx); err != nil {
				s.log.Warn("sweep run failed", zap.Error(err))
			}
		}
	}
}
