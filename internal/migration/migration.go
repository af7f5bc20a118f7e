package migration

import (
	"errors"

	analyticsdomain "github.com/smallbiznis/warden/internal/analytics/domain"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
	webhookdomain "github.com/smallbiznis/warden/internal/webhook/domain"
	"gorm.io/gorm"
)

// Run creates or updates the schema on startup so the service is usable out
// of the box against a fresh database.
func Run(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	return db.AutoMigrate(
		&licensedomain.License{},
		&analyticsdomain.ApiRequestLog{},
		&webhookdomain.WebhookEvent{},
		&securitydomain.AbuseAttempt{},
		&securitydomain.BlockedIP{},
	)
}
