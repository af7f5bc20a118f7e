package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
	MarkSent(ctx context.Context, db *gorm.DB, id int64) error
	ListByLicense(ctx context.Context, db *gorm.DB, licenseID string, limit int) ([]WebhookEvent, error)
}
