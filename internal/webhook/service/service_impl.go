package service

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warden/internal/clock"
	webhookdomain "github.com/smallbiznis/warden/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const listLimit = 50

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  webhookdomain.Repository
	Clock clock.Clock
	Node  *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  webhookdomain.Repository
	clock clock.Clock
	node  *snowflake.Node
}

func New(p Params) webhookdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("webhook.service"),
		repo:  p.Repo,
		clock: p.Clock,
		node:  p.Node,
	}
}

func (s *Service) Trigger(ctx context.Context, licenseID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to encode webhook payload",
			zap.String("license_id", licenseID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	event := &webhookdomain.WebhookEvent{
		ID:        s.node.Generate().Int64(),
		LicenseID: licenseID,
		EventType: eventType,
		Payload:   string(raw),
		Status:    webhookdomain.StatusPending,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, event); err != nil {
		s.log.Error("failed to record webhook event",
			zap.String("license_id", licenseID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	// Simulated delivery: log the event and mark it sent.
	s.log.Info("webhook delivered",
		zap.Int64("event_id", event.ID),
		zap.String("license_id", licenseID),
		zap.String("event_type", eventType),
	)

	if err := s.repo.MarkSent(ctx, s.db, event.ID); err != nil {
		s.log.Error("failed to mark webhook event sent",
			zap.Int64("event_id", event.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) ListByLicense(ctx context.Context, licenseID string) ([]webhookdomain.WebhookEvent, error) {
	return s.repo.ListByLicense(ctx, s.db, licenseID, listLimit)
}
