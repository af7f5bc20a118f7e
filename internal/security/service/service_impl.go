package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reportAttemptLimit  = 100
	reportOffenderLimit = 10
)

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Repo   securitydomain.Repository
	Clock  clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  securitydomain.Repository
	clock clock.Clock

	window        time.Duration
	threshold     int
	blockDuration time.Duration
	retention     time.Duration
}

func New(p Params) securitydomain.Ledger {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("security.service"),
		repo:          p.Repo,
		clock:         p.Clock,
		window:        p.Config.Abuse.Window,
		threshold:     p.Config.Abuse.Threshold,
		blockDuration: p.Config.Abuse.BlockDuration,
		retention:     p.Config.Abuse.AttemptRetention,
	}
}

func (s *Service) IsBlocked(ctx context.Context, ip string) bool {
	blocked, err := s.repo.IsBlocked(ctx, s.db, ip, s.clock.Now())
	if err != nil {
		// Fail open: a broken ledger must not take legitimate traffic down
		// with it. Authentication still stands between the caller and the API.
		s.log.Error("blocked-ip lookup failed, allowing request",
			zap.String("ip", ip),
			zap.Error(err),
		)
		return false
	}
	return blocked
}

func (s *Service) RecordAttempt(ctx context.Context, attempt securitydomain.Attempt) {
	row := s.toRow(attempt)
	if err := s.repo.InsertAttempt(ctx, s.db, row); err != nil {
		s.log.Error("failed to record abuse attempt",
			zap.String("ip", attempt.IP),
			zap.String("endpoint", attempt.Endpoint),
			zap.Error(err),
		)
	}
}

func (s *Service) HandleRateLimited(ctx context.Context, attempt securitydomain.Attempt) {
	s.RecordAttempt(ctx, attempt)

	since := s.clock.Now().Add(-s.window)
	count, err := s.repo.CountRecentAttempts(ctx, s.db, attempt.IP, since)
	if err != nil {
		s.log.Error("failed to count recent abuse attempts",
			zap.String("ip", attempt.IP),
			zap.Error(err),
		)
		return
	}

	if count < int64(s.threshold) {
		return
	}

	if err := s.Block(ctx, attempt.IP, s.blockDuration); err != nil {
		s.log.Error("failed to block abusive ip",
			zap.String("ip", attempt.IP),
			zap.Error(err),
		)
		return
	}

	s.log.Warn("ip blocked for abuse",
		zap.String("ip", attempt.IP),
		zap.Int64("recent_attempts", count),
		zap.Duration("block_duration", s.blockDuration),
	)
}

func (s *Service) Block(ctx context.Context, ip string, duration time.Duration) error {
	now := s.clock.Now()
	return s.repo.Block(ctx, s.db, ip, now, now.Add(duration))
}

func (s *Service) Unblock(ctx context.Context, ip string) error {
	trimmed := strings.TrimSpace(ip)
	if trimmed == "" {
		return securitydomain.ErrNotBlocked
	}

	removed, err := s.repo.Unblock(ctx, s.db, trimmed)
	if err != nil {
		return err
	}
	if !removed {
		return securitydomain.ErrNotBlocked
	}

	s.log.Info("ip unblocked", zap.String("ip", trimmed))
	return nil
}

func (s *Service) Report(ctx context.Context, days int) (*securitydomain.Report, error) {
	if days <= 0 {
		days = 7
	}
	now := s.clock.Now()
	since := now.AddDate(0, 0, -days)

	attempts, err := s.repo.RecentAttempts(ctx, s.db, since, reportAttemptLimit)
	if err != nil {
		return nil, err
	}
	offenders, err := s.repo.TopOffenders(ctx, s.db, since, reportOffenderLimit)
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.ActiveBlocks(ctx, s.db, now)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, s.db, since, now)
	if err != nil {
		return nil, err
	}

	return &securitydomain.Report{
		WindowDays:     days,
		RecentAttempts: attempts,
		TopOffenders:   offenders,
		ActiveBlocks:   blocks,
		Stats:          stats,
	}, nil
}

func (s *Service) SweepExpiredBlocks(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpiredBlocks(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("expired ip blocks swept", zap.Int64("removed", removed))
	}
	return removed, nil
}

func (s *Service) SweepOldAttempts(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.retention)
	removed, err := s.repo.DeleteAttemptsBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("old abuse attempts swept", zap.Int64("removed", removed))
	}
	return removed, nil
}

func (s *Service) toRow(attempt securitydomain.Attempt) *securitydomain.AbuseAttempt {
	headers := "{}"
	if len(attempt.Headers) > 0 {
		if raw, err := json.Marshal(attempt.Headers); err == nil {
			headers = string(raw)
		}
	}
	return &securitydomain.AbuseAttempt{
		IP:        attempt.IP,
		Endpoint:  attempt.Endpoint,
		Method:    attempt.Method,
		Headers:   headers,
		Timestamp: s.clock.Now(),
	}
}
