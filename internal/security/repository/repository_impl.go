package repository

import (
	"context"
	"time"

	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() securitydomain.Repository {
	return &repo{}
}

func (r *repo) IsBlocked(ctx context.Context, db *gorm.DB, ip string, now time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&securitydomain.BlockedIP{}).
		Where("ip = ? AND expires_at > ?", ip, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertAttempt(ctx context.Context, db *gorm.DB, attempt *securitydomain.AbuseAttempt) error {
	return db.WithContext(ctx).Create(attempt).Error
}

func (r *repo) CountRecentAttempts(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&securitydomain.AbuseAttempt{}).
		Where("ip = ? AND timestamp > ?", ip, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Block(ctx context.Context, db *gorm.DB, ip string, blockedAt, expiresAt time.Time) error {
	// Replace rather than update so a re-block always carries a fresh window.
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ip = ?", ip).Delete(&securitydomain.BlockedIP{}).Error; err != nil {
			return err
		}
		return tx.Create(&securitydomain.BlockedIP{
			IP:        ip,
			BlockedAt: blockedAt,
			ExpiresAt: expiresAt,
		}).Error
	})
}

func (r *repo) Unblock(ctx context.Context, db *gorm.DB, ip string) (bool, error) {
	result := db.WithContext(ctx).Where("ip = ?", ip).Delete(&securitydomain.BlockedIP{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) DeleteExpiredBlocks(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&securitydomain.BlockedIP{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) DeleteAttemptsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&securitydomain.AbuseAttempt{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) RecentAttempts(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]securitydomain.AbuseAttempt, error) {
	var attempts []securitydomain.AbuseAttempt
	err := db.WithContext(ctx).
		Where("timestamp > ?", since).
		Order("timestamp DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *repo) TopOffenders(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]securitydomain.OffenderStat, error) {
	var offenders []securitydomain.OffenderStat
	err := db.WithContext(ctx).Raw(
		`SELECT ip, COUNT(*) AS attempts, MAX(timestamp) AS last_seen
		 FROM abuse_attempts
		 WHERE timestamp > ?
		 GROUP BY ip
		 ORDER BY attempts DESC
		 LIMIT ?`,
		since,
		limit,
	).Scan(&offenders).Error
	if err != nil {
		return nil, err
	}
	return offenders, nil
}

func (r *repo) ActiveBlocks(ctx context.Context, db *gorm.DB, now time.Time) ([]securitydomain.BlockedIP, error) {
	var blocks []securitydomain.BlockedIP
	err := db.WithContext(ctx).
		Where("expires_at > ?", now).
		Order("blocked_at DESC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, since, now time.Time) (securitydomain.ReportStats, error) {
	var stats securitydomain.ReportStats
	err := db.WithContext(ctx).Raw(
		`SELECT
		   (SELECT COUNT(*) FROM abuse_attempts WHERE timestamp > ?) AS total_attempts,
		   (SELECT COUNT(DISTINCT ip) FROM abuse_attempts WHERE timestamp > ?) AS unique_ips,
		   (SELECT COUNT(*) FROM blocked_ips WHERE expires_at > ?) AS active_blocks`,
		since,
		since,
		now,
	).Scan(&stats).Error
	if err != nil {
		return securitydomain.ReportStats{}, err
	}
	return stats, nil
}
