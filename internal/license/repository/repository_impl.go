package repository

import (
	"context"
	"errors"

	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() licensedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, license *licensedomain.License) error {
	return db.WithContext(ctx).Create(license).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]licensedomain.License, error) {
	var licenses []licensedomain.License
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Find(&licenses).Error
	if err != nil {
		return nil, err
	}
	return licenses, nil
}

func (r *repo) FindByCredentials(ctx context.Context, db *gorm.DB, creds licensedomain.Credentials) (*licensedomain.License, error) {
	var license licensedomain.License
	err := db.WithContext(ctx).
		Where("api_key = ? AND license_key = ? AND secret_key = ?", creds.APIKey, creds.LicenseKey, creds.SecretKey).
		First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

func (r *repo) LatestByEmail(ctx context.Context, db *gorm.DB, email string) (*licensedomain.License, error) {
	var license licensedomain.License
	err := db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

func (r *repo) FindBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*licensedomain.License, error) {
	var license licensedomain.License
	err := db.WithContext(ctx).
		Where("stripe_subscription_id = ?", subscriptionID).
		First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE licenses SET status = ? WHERE id = ?`,
		licensedomain.StatusRevoked,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ConsumeQuota(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	// Single conditional update: the row that reaches the limit is the last
	// one admitted, concurrent callers past it see zero rows affected.
	result := db.WithContext(ctx).Exec(
		`UPDATE licenses SET requests_used = requests_used + 1
		 WHERE id = ? AND requests_used < requests_limit`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) LinkStripe(ctx context.Context, db *gorm.DB, id string, link licensedomain.StripeLink) error {
	return db.WithContext(ctx).Exec(
		`UPDATE licenses
		 SET stripe_customer_id = COALESCE(?, stripe_customer_id),
		     stripe_subscription_id = COALESCE(?, stripe_subscription_id),
		     stripe_subscription_item_id = COALESCE(?, stripe_subscription_item_id)
		 WHERE id = ?`,
		link.CustomerID,
		link.SubscriptionID,
		link.SubscriptionItemID,
		id,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE licenses SET status = ? WHERE id = ?`,
		status,
		id,
	).Error
}
