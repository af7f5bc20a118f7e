package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, license *License) error
	List(ctx context.Context, db *gorm.DB) ([]License, error)
	FindByCredentials(ctx context.Context, db *gorm.DB, creds Credentials) (*License, error)
	LatestByEmail(ctx context.Context, db *gorm.DB, email string) (*License, error)
	FindBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*License, error)

	// Revoke reports whether a row was updated.
	Revoke(ctx context.Context, db *gorm.DB, id string) (bool, error)

	// ConsumeQuota atomically increments requests_used when it is still
	// below requests_limit; false means the quota is exhausted.
	ConsumeQuota(ctx context.Context, db *gorm.DB, id string) (bool, error)

	LinkStripe(ctx context.Context, db *gorm.DB, id string, link StripeLink) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id, status string) error
}
