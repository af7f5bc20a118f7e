package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	IsBlocked(ctx context.Context, db *gorm.DB, ip string, now time.Time) (bool, error)
	InsertAttempt(ctx context.Context, db *gorm.DB, attempt *AbuseAttempt) error
	CountRecentAttempts(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error)

	// Block replaces any existing row for the IP with a fresh one.
	Block(ctx context.Context, db *gorm.DB, ip string, blockedAt, expiresAt time.Time) error

	// Unblock reports whether a row was removed.
	Unblock(ctx context.Context, db *gorm.DB, ip string) (bool, error)

	DeleteExpiredBlocks(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	DeleteAttemptsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)

	RecentAttempts(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]AbuseAttempt, error)
	TopOffenders(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]OffenderStat, error)
	ActiveBlocks(ctx context.Context, db *gorm.DB, now time.Time) ([]BlockedIP, error)
	Stats(ctx context.Context, db *gorm.DB, since, now time.Time) (ReportStats, error)
}
