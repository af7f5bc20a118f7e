package domain

import (
	"time"
)

const (
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"

	StatusActive  = "active"
	StatusRevoked = "revoked"
)

// PlanRequestLimits fixes the lifetime request quota per plan at creation.
var PlanRequestLimits = map[string]int64{
	PlanBasic:      1000,
	PlanPro:        10000,
	PlanEnterprise: 100000,
}

// License is a tenant's credential-and-quota record controlling API access.
// The credential triple is generated once and immutable; the Stripe linkage
// columns stay null until billing events reconcile them.
type License struct {
	ID          string `gorm:"primaryKey;type:text" json:"id"`
	UserID      string `gorm:"column:user_id;type:text;uniqueIndex;not null" json:"user_id"`
	CompanyName string `gorm:"column:company_name;type:text;not null" json:"company_name"`
	Email       string `gorm:"type:text;not null" json:"email"`
	PlanType    string `gorm:"column:plan_type;type:text;not null" json:"plan_type"`

	LicenseKey string `gorm:"column:license_key;type:text;uniqueIndex;not null" json:"license_key"`
	APIKey     string `gorm:"column:api_key;type:text;uniqueIndex;not null" json:"api_key"`
	SecretKey  string `gorm:"column:secret_key;type:text;uniqueIndex;not null" json:"secret_key"`

	Status        string    `gorm:"type:text;not null;default:'active'" json:"status"`
	RequestsUsed  int64     `gorm:"column:requests_used;not null;default:0" json:"requests_used"`
	RequestsLimit int64     `gorm:"column:requests_limit;not null" json:"requests_limit"`
	ExpiresAt     time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`

	StripeCustomerID         *string `gorm:"column:stripe_customer_id;type:text" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID     *string `gorm:"column:stripe_subscription_id;type:text" json:"stripe_subscription_id,omitempty"`
	StripeSubscriptionItemID *string `gorm:"column:stripe_subscription_item_id;type:text" json:"stripe_subscription_item_id,omitempty"`
}

// TableName sets the database table name.
func (License) TableName() string { return "licenses" }

// Expired reports whether the license is past its expiry at the given time.
func (l *License) Expired(now time.Time) bool {
	return l.ExpiresAt.Before(now)
}
