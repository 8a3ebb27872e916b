package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	entitlementservice "github.com/courtside/paywall/internal/entitlement/service"
	"github.com/courtside/paywall/internal/observability"
	productdomain "github.com/courtside/paywall/internal/product/domain"
	purchasedomain "github.com/courtside/paywall/internal/purchase/domain"
	purchaseservice "github.com/courtside/paywall/internal/purchase/service"
	"github.com/courtside/paywall/internal/webhook/adapters"
	"github.com/courtside/paywall/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	Adapters       *adapters.Registry
	PurchaseSvc    *purchaseservice.Service
	EntitlementSvc *entitlementservice.Service
	ProductRepo    productdomain.Repository
	Metrics        *observability.Metrics `optional:"true"`
}

// Service turns provider webhook deliveries into purchase transitions. Every
// step is idempotent keyed by the provider event id or the purchase id, so
// replays and concurrent duplicate deliveries converge on the same state.
type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	adapters       *adapters.Registry
	purchaseSvc    *purchaseservice.Service
	entitlementSvc *entitlementservice.Service
	productRepo    productdomain.Repository
	metrics        *observability.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("webhook.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		adapters:       p.Adapters,
		purchaseSvc:    p.PurchaseSvc,
		entitlementSvc: p.EntitlementSvc,
		productRepo:    p.ProductRepo,
		metrics:        p.Metrics,
	}
}

// IngestWebhook authenticates, dedups and applies one provider delivery.
// notificationURL must be the exact URL the provider signed.
func (s *Service) IngestWebhook(ctx context.Context, provider string, notificationURL string, payload []byte, headers http.Header) error {
	adapter, ok := s.adapters.Lookup(provider)
	if !ok {
		return domain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	if err := adapter.Verify(ctx, notificationURL, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			return nil
		}
		return err
	}

	now := s.clock.Now()
	record := domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       string(event.Type),
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return err
	}
	stored := &record
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return domain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return domain.ErrEventAlreadyProcessed
		}
	}

	if err := s.apply(ctx, event); err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, now); err != nil {
		return err
	}

	if inserted {
		s.metrics.RecordWebhookEvent(event.Provider, string(event.Type))
	}
	return nil
}

func (s *Service) apply(ctx context.Context, event *domain.PaymentEvent) error {
	purchase, err := s.resolvePurchase(ctx, event)
	if err != nil {
		return err
	}
	if purchase == nil {
		// The provider account may be shared with unrelated systems;
		// an unknown payment id is their event, not our error.
		s.log.Debug("webhook ignored unknown payment",
			zap.String("provider", event.Provider),
			zap.String("payment_id", event.PaymentID),
		)
		return nil
	}

	switch event.Type {
	case domain.EventTypePaymentCompleted:
		return s.applyPaymentCompleted(ctx, purchase, event)
	case domain.EventTypePaymentFailed:
		return s.applyTransition(s.purchaseSvc.MarkFailed(ctx, purchase.ID), purchase.ID, event)
	case domain.EventTypeRefundCreated:
		return s.applyRefundCreated(ctx, purchase, event)
	default:
		return domain.ErrInvalidEvent
	}
}

// resolvePurchase correlates a provider event to a purchase. The stored
// payment id wins; the first delivery for a purchase predates that write, so
// the checkout reference the payment was created with is the fallback.
func (s *Service) resolvePurchase(ctx context.Context, event *domain.PaymentEvent) (*purchasedomain.Purchase, error) {
	purchase, err := s.purchaseSvc.FindByExternalPaymentID(ctx, event.PaymentID)
	if err != nil {
		return nil, err
	}
	if purchase != nil {
		return purchase, nil
	}
	return s.purchaseSvc.FindByCheckoutRef(ctx, event.CheckoutRef)
}

func (s *Service) applyPaymentCompleted(ctx context.Context, purchase *purchasedomain.Purchase, event *domain.PaymentEvent) error {
	if err := s.purchaseSvc.MarkPaid(ctx, purchase.ID, event.PaymentID, event.PayerExternalID); err != nil {
		return s.applyTransition(err, purchase.ID, event)
	}

	product, err := s.productRepo.FindByID(ctx, s.db, purchase.ProductID)
	if err != nil {
		return err
	}
	var endsAt *time.Time
	if product != nil {
		endsAt = product.EndsAt
	}

	if _, err := s.entitlementSvc.IssueForPurchase(ctx, purchase.ID, endsAt); err != nil {
		return err
	}
	return nil
}

func (s *Service) applyRefundCreated(ctx context.Context, purchase *purchasedomain.Purchase, event *domain.PaymentEvent) error {
	isFull := event.RefundAmountCents >= purchase.AmountCents
	if err := s.purchaseSvc.MarkRefunded(ctx, purchase.ID, isFull); err != nil {
		return s.applyTransition(err, purchase.ID, event)
	}
	if isFull {
		return s.entitlementSvc.RevokeForPurchase(ctx, purchase.ID)
	}
	return nil
}

func (s *Service) applyTransition(err error, purchaseID snowflake.ID, event *domain.PaymentEvent) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, purchasedomain.ErrInvalidTransition) {
		// Out-of-order delivery; the state machine held its ground.
		s.log.Warn("webhook transition rejected",
			zap.String("purchase_id", purchaseID.String()),
			zap.String("event_type", string(event.Type)),
		)
	}
	return err
}
