package domain

import "context"

type Service interface {
	// Trigger records an outbound event for the license and simulates its
	// delivery. Best-effort: failures are logged, never returned to the
	// request path.
	Trigger(ctx context.Context, licenseID, eventType string, payload any)

	// ListByLicense returns the license's most recent events, newest first,
	// capped at 50.
	ListByLicense(ctx context.Context, licenseID string) ([]WebhookEvent, error)
}
