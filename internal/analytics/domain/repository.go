package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, row *ApiRequestLog) error
	GlobalSummary(ctx context.Context, db *gorm.DB) ([]LicenseSummary, error)
	StatsForLicense(ctx context.Context, db *gorm.DB, licenseID string, since time.Time) (UsageStats, error)
	TimelineForLicense(ctx context.Context, db *gorm.DB, licenseID string, since time.Time) ([]TimelineBucket, error)
}
