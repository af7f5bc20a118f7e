package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/warden/internal/clock"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	"github.com/smallbiznis/warden/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  licensedomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  licensedomain.Repository
	clock clock.Clock
}

func New(p Params) licensedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("license.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req licensedomain.CreateRequest) (*licensedomain.License, error) {
	companyName := strings.TrimSpace(req.CompanyName)
	email := strings.TrimSpace(req.Email)
	planType := strings.ToLower(strings.TrimSpace(req.PlanType))
	rawExpiry := strings.TrimSpace(req.ExpiresAt)

	if companyName == "" || email == "" || planType == "" || rawExpiry == "" {
		return nil, licensedomain.ErrInvalidRequest
	}

	limit, ok := licensedomain.PlanRequestLimits[planType]
	if !ok {
		return nil, licensedomain.ErrInvalidRequest
	}

	expiresAt, err := parseExpiry(rawExpiry)
	if err != nil {
		return nil, licensedomain.ErrInvalidRequest
	}

	var license *licensedomain.License
	for attempt := 0; ; attempt++ {
		licenseKey, err := licensedomain.NewLicenseKey()
		if err != nil {
			return nil, err
		}
		apiKey, err := licensedomain.NewAPIKey()
		if err != nil {
			return nil, err
		}
		secretKey, err := licensedomain.NewSecretKey()
		if err != nil {
			return nil, err
		}

		license = &licensedomain.License{
			ID:            uuid.NewString(),
			UserID:        uuid.NewString(),
			CompanyName:   companyName,
			Email:         email,
			PlanType:      planType,
			LicenseKey:    licenseKey,
			APIKey:        apiKey,
			SecretKey:     secretKey,
			Status:        licensedomain.StatusActive,
			RequestsUsed:  0,
			RequestsLimit: limit,
			ExpiresAt:     expiresAt,
			CreatedAt:     s.clock.Now(),
		}

		err = s.repo.Insert(ctx, s.db, license)
		if err == nil {
			break
		}
		// Generated keys colliding with an existing row is a re-roll, not a
		// caller error.
		if db.IsDuplicateKeyErr(err) && attempt < 2 {
			s.log.Warn("credential collision, regenerating", zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	s.log.Info("license created",
		zap.String("license_id", license.ID),
		zap.String("plan", license.PlanType),
	)

	return license, nil
}

func (s *Service) List(ctx context.Context) ([]licensedomain.License, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) Revoke(ctx context.Context, id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return licensedomain.ErrInvalidRequest
	}

	updated, err := s.repo.Revoke(ctx, s.db, trimmed)
	if err != nil {
		return err
	}
	if !updated {
		return licensedomain.ErrNotFound
	}

	s.log.Info("license revoked", zap.String("license_id", trimmed))
	return nil
}

// Authenticate runs the fixed check order: missing, invalid, inactive,
// expired, quota. A store failure here fails the request; authentication is
// the security boundary and never degrades open.
func (s *Service) Authenticate(ctx context.Context, creds licensedomain.Credentials) (*licensedomain.License, error) {
	if creds.Missing() {
		return nil, licensedomain.ErrMissingCredentials
	}

	license, err := s.repo.FindByCredentials(ctx, s.db, creds)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, licensedomain.ErrInvalidCredentials
	}

	if license.Status != licensedomain.StatusActive {
		return nil, licensedomain.ErrLicenseInactive
	}

	if license.Expired(s.clock.Now()) {
		return nil, licensedomain.ErrLicenseExpired
	}

	consumed, err := s.repo.ConsumeQuota(ctx, s.db, license.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, licensedomain.ErrQuotaExceeded
	}
	license.RequestsUsed++

	return license, nil
}

func (s *Service) LinkStripe(ctx context.Context, email string, link licensedomain.StripeLink) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return licensedomain.ErrInvalidRequest
	}

	license, err := s.repo.LatestByEmail(ctx, s.db, trimmed)
	if err != nil {
		return err
	}
	if license == nil {
		return licensedomain.ErrNotFound
	}

	return s.repo.LinkStripe(ctx, s.db, license.ID, link)
}

func (s *Service) SyncSubscriptionStatus(ctx context.Context, subscriptionID string, active bool) error {
	license, err := s.repo.FindBySubscriptionID(ctx, s.db, strings.TrimSpace(subscriptionID))
	if err != nil {
		return err
	}
	if license == nil {
		return licensedomain.ErrNotFound
	}

	status := licensedomain.StatusRevoked
	if active {
		status = licensedomain.StatusActive
	}
	return s.repo.UpdateStatus(ctx, s.db, license.ID, status)
}

func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
