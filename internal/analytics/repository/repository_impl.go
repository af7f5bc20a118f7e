package repository

import (
	"context"
	"time"

	analyticsdomain "github.com/smallbiznis/warden/internal/analytics/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() analyticsdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, row *analyticsdomain.ApiRequestLog) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) GlobalSummary(ctx context.Context, db *gorm.DB) ([]analyticsdomain.LicenseSummary, error) {
	var summaries []analyticsdomain.LicenseSummary
	err := db.WithContext(ctx).Raw(
		`SELECT l.id AS license_id,
		        l.company_name,
		        l.plan_type,
		        l.requests_used,
		        l.requests_limit,
		        COUNT(r.id) AS total_requests,
		        COALESCE(AVG(r.response_time), 0) AS avg_response_time
		 FROM licenses l
		 LEFT JOIN api_requests r ON r.license_id = l.id
		 GROUP BY l.id, l.company_name, l.plan_type, l.requests_used, l.requests_limit
		 ORDER BY total_requests DESC`,
	).Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *repo) StatsForLicense(ctx context.Context, db *gorm.DB, licenseID string, since time.Time) (analyticsdomain.UsageStats, error) {
	var stats analyticsdomain.UsageStats
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total_requests,
		        COALESCE(AVG(response_time), 0) AS avg_response_time,
		        COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0) AS error_count
		 FROM api_requests
		 WHERE license_id = ? AND timestamp > ?`,
		licenseID,
		since,
	).Scan(&stats).Error
	if err != nil {
		return analyticsdomain.UsageStats{}, err
	}
	return stats, nil
}

func (r *repo) TimelineForLicense(ctx context.Context, db *gorm.DB, licenseID string, since time.Time) ([]analyticsdomain.TimelineBucket, error) {
	var buckets []analyticsdomain.TimelineBucket
	err := db.WithContext(ctx).Raw(
		`SELECT date(timestamp) AS date,
		        COUNT(*) AS requests,
		        COALESCE(AVG(response_time), 0) AS avg_response_time
		 FROM api_requests
		 WHERE license_id = ? AND timestamp > ?
		 GROUP BY date(timestamp)
		 ORDER BY date(timestamp)`,
		licenseID,
		since,
	).Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}
