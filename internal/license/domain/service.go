package domain

import (
	"context"
	"errors"
)

// Credentials is the three-part credential tuple required on protected
// API routes. All three must be present and match a single license row.
type Credentials struct {
	APIKey     string
	LicenseKey string
	SecretKey  string
}

// Missing reports whether any part of the tuple is absent.
func (c Credentials) Missing() bool {
	return c.APIKey == "" || c.LicenseKey == "" || c.SecretKey == ""
}

type CreateRequest struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	PlanType    string `json:"planType"`
	ExpiresAt   string `json:"expiresAt"`
}

type StripeLink struct {
	CustomerID         *string
	SubscriptionID     *string
	SubscriptionItemID *string
}

type Service interface {
	// Create issues a new license. The returned record carries the plaintext
	// credential triple; it is shown to the caller exactly once.
	Create(ctx context.Context, req CreateRequest) (*License, error)
	List(ctx context.Context) ([]License, error)
	Revoke(ctx context.Context, id string) error

	// Authenticate validates the credential tuple and, on success, consumes
	// one unit of quota. Checks run in a fixed order: missing, invalid,
	// inactive, expired, quota.
	Authenticate(ctx context.Context, creds Credentials) (*License, error)

	// LinkStripe attaches billing identifiers to the newest license for the
	// given email. Reconciled asynchronously from billing events.
	LinkStripe(ctx context.Context, email string, link StripeLink) error

	// SyncSubscriptionStatus flips the license status when the linked
	// subscription changes state upstream.
	SyncSubscriptionStatus(ctx context.Context, subscriptionID string, active bool) error
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrNotFound           = errors.New("not_found")
	ErrMissingCredentials = errors.New("missing_credentials")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrLicenseInactive    = errors.New("license_inactive")
	ErrLicenseExpired     = errors.New("license_expired")
	ErrQuotaExceeded      = errors.New("quota_exceeded")
)
