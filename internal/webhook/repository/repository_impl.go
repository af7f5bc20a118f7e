package repository

import (
	"context"

	webhookdomain "github.com/smallbiznis/warden/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() webhookdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *webhookdomain.WebhookEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhooks SET status = ?, attempts = attempts + 1 WHERE id = ?`,
		webhookdomain.StatusSent,
		id,
	).Error
}

func (r *repo) ListByLicense(ctx context.Context, db *gorm.DB, licenseID string, limit int) ([]webhookdomain.WebhookEvent, error) {
	var events []webhookdomain.WebhookEvent
	err := db.WithContext(ctx).
		Where("license_id = ?", licenseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
