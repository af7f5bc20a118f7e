package service

import (
	"context"
	"time"

	analyticsdomain "github.com/smallbiznis/warden/internal/analytics/domain"
	"github.com/smallbiznis/warden/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  analyticsdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  analyticsdomain.Repository
	clock clock.Clock
}

func New(p Params) analyticsdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, entry analyticsdomain.Entry) {
	row := &analyticsdomain.ApiRequestLog{
		LicenseID:    entry.LicenseID,
		Endpoint:     entry.Endpoint,
		Method:       entry.Method,
		StatusCode:   entry.StatusCode,
		ResponseTime: entry.ResponseTime.Milliseconds(),
		Timestamp:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, row); err != nil {
		s.log.Error("failed to record api request",
			zap.String("license_id", entry.LicenseID),
			zap.String("endpoint", entry.Endpoint),
			zap.Error(err),
		)
	}
}

func (s *Service) GlobalSummary(ctx context.Context) ([]analyticsdomain.LicenseSummary, error) {
	return s.repo.GlobalSummary(ctx, s.db)
}

func (s *Service) LicenseReport(ctx context.Context, licenseID, period string) (*analyticsdomain.Report, error) {
	normalized, window := parsePeriod(period)
	since := s.clock.Now().Add(-window)

	stats, err := s.repo.StatsForLicense(ctx, s.db, licenseID, since)
	if err != nil {
		return nil, err
	}
	timeline, err := s.repo.TimelineForLicense(ctx, s.db, licenseID, since)
	if err != nil {
		return nil, err
	}

	return &analyticsdomain.Report{
		Period:   normalized,
		Stats:    stats,
		Timeline: timeline,
	}, nil
}

func parsePeriod(period string) (string, time.Duration) {
	switch period {
	case "24h":
		return "24h", 24 * time.Hour
	case "7d":
		return "7d", 7 * 24 * time.Hour
	case "30d":
		return "30d", 30 * 24 * time.Hour
	default:
		return "30d", 30 * 24 * time.Hour
	}
}
