package billing

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured    = errors.New("billing_not_configured")
	ErrInvalidSignature = errors.New("invalid_signature")
)

type CheckoutRequest struct {
	Mode       string            `json:"mode"`
	PriceID    string            `json:"priceId"`
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	Quantity   int64             `json:"quantity"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Licenses licensedomain.Service
}

// Service wraps the Stripe collaborators: checkout session creation, webhook
// reconciliation, and metered usage records. Everything here stays outside
// the gatekeeper core; a Stripe outage never affects admission decisions.
type Service struct {
	api           *client.API
	webhookSecret string
	baseURL       string
	log           *zap.Logger
	clock         clock.Clock
	licenses      licensedomain.Service
}

func New(p Params) *Service {
	s := &Service{
		webhookSecret: p.Config.Stripe.WebhookSecret,
		baseURL:       p.Config.BaseURL,
		log:           p.Log.Named("billing.service"),
		clock:         p.Clock,
		licenses:      p.Licenses,
	}
	if p.Config.Stripe.SecretKey != "" {
		s.api = &client.API{}
		s.api.Init(p.Config.Stripe.SecretKey, nil)
	}
	return s
}

// Configured reports whether a Stripe secret key was provided.
func (s *Service) Configured() bool {
	return s.api != nil
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	mode := req.Mode
	if mode == "" {
		mode = string(stripe.CheckoutSessionModePayment)
	}
	currency := req.Currency
	if currency == "" {
		currency = "brl"
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.baseURL + "/sucesso?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.baseURL + "/falha"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(mode),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
	}
	params.Context = ctx

	switch {
	case req.PriceID != "":
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(quantity),
		}}
	case req.Amount > 0:
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Checkout"),
				},
			},
			Quantity: stripe.Int64(quantity),
		}}
	default:
		return nil, licensedomain.ErrInvalidRequest
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// HandleWebhookEvent verifies the payload signature and reconciles license
// state from the event.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, signature string) error {
	if !s.Configured() || s.webhookSecret == "" {
		return ErrNotConfigured
	}

	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return ErrInvalidSignature
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		return s.handleSubscriptionChange(ctx, event)
	default:
		s.log.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}

	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}
	if email == "" {
		s.log.Warn("checkout session has no customer email", zap.String("session_id", session.ID))
		return nil
	}

	link := licensedomain.StripeLink{}
	if session.Customer != nil && session.Customer.ID != "" {
		link.CustomerID = stripe.String(session.Customer.ID)
	}
	if session.Subscription != nil && session.Subscription.ID != "" {
		link.SubscriptionID = stripe.String(session.Subscription.ID)
		if itemID := s.firstSubscriptionItem(session.Subscription.ID); itemID != "" {
			link.SubscriptionItemID = stripe.String(itemID)
		}
	}

	err := s.licenses.LinkStripe(ctx, email, link)
	if errors.Is(err, licensedomain.ErrNotFound) {
		s.log.Warn("no license for checkout email", zap.String("session_id", session.ID))
		return nil
	}
	return err
}

func (s *Service) handleSubscriptionChange(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}

	active := sub.Status == stripe.SubscriptionStatusActive ||
		sub.Status == stripe.SubscriptionStatusTrialing

	err := s.licenses.SyncSubscriptionStatus(ctx, sub.ID, active)
	if errors.Is(err, licensedomain.ErrNotFound) {
		s.log.Debug("subscription not linked to any license", zap.String("subscription_id", sub.ID))
		return nil
	}
	return err
}

func (s *Service) firstSubscriptionItem(subscriptionID string) string {
	sub, err := s.api.Subscriptions.Get(subscriptionID, nil)
	if err != nil {
		s.log.Warn("failed to fetch subscription for item id",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err),
		)
		return ""
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	return sub.Items.Data[0].ID
}

// RecordUsage reports one metered unit for the license's subscription item.
// Best-effort: a failure is logged and never surfaces to the request path.
// No-op when Stripe is unconfigured or the license has no linked item.
func (s *Service) RecordUsage(ctx context.Context, license *licensedomain.License, quantity int64) {
	if !s.Configured() || license == nil || license.StripeSubscriptionItemID == nil {
		return
	}
	if quantity <= 0 {
		quantity = 1
	}

	params := &stripe.UsageRecordParams{
		SubscriptionItem: stripe.String(*license.StripeSubscriptionItemID),
		Quantity:         stripe.Int64(quantity),
		Timestamp:        stripe.Int64(s.clock.Now().Unix()),
		Action:           stripe.String(stripe.UsageRecordActionIncrement),
	}
	params.Context = ctx

	if _, err := s.api.UsageRecords.New(params); err != nil {
		s.log.Warn("failed to record stripe usage",
			zap.String("license_id", license.ID),
			zap.Error(err),
		)
	}
}
