package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	"github.com/courtside/paywall/internal/config"
	entitlementservice "github.com/courtside/paywall/internal/entitlement/service"
	"github.com/courtside/paywall/internal/observability"
	playbackdomain "github.com/courtside/paywall/internal/playback/domain"
	playbackservice "github.com/courtside/paywall/internal/playback/service"
	"github.com/courtside/paywall/internal/processor"
	productdomain "github.com/courtside/paywall/internal/product/domain"
	"github.com/courtside/paywall/internal/providers/email"
	purchasedomain "github.com/courtside/paywall/internal/purchase/domain"
	purchaseservice "github.com/courtside/paywall/internal/purchase/service"
	"github.com/courtside/paywall/internal/refund/domain"
	"github.com/courtside/paywall/internal/refund/evaluator"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// refundCurrency is the only settlement currency the engine handles;
// currency conversion is out of scope.
const refundCurrency = "USD"

// retryGrace is how long a refund may sit unprocessed before the sweep
// resubmits it.
const retryGrace = 10 * time.Minute

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo           domain.Repository
	Policy         *config.RefundPolicyHolder
	PurchaseSvc    *purchaseservice.Service
	EntitlementSvc *entitlementservice.Service
	PlaybackSvc    *playbackservice.Service
	ProductRepo    productdomain.Repository
	Processor      processor.Client
	Email          email.Provider
	Metrics        *observability.Metrics `optional:"true"`
}

// Service issues refunds: it re-validates eligibility, persists the refund
// record, drives the purchase transition, and submits to the external
// processor. The refund row outlives a failed submission so the call can be
// retried without re-evaluating anything.
type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	policy         *config.RefundPolicyHolder
	purchaseSvc    *purchaseservice.Service
	entitlementSvc *entitlementservice.Service
	playbackSvc    *playbackservice.Service
	productRepo    productdomain.Repository
	processor      processor.Client
	email          email.Provider
	metrics        *observability.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("refund.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		policy:         p.Policy,
		purchaseSvc:    p.PurchaseSvc,
		entitlementSvc: p.EntitlementSvc,
		playbackSvc:    p.PlaybackSvc,
		productRepo:    p.ProductRepo,
		processor:      p.Processor,
		email:          p.Email,
		metrics:        p.Metrics,
	}
}

// EvaluatePurchase runs the eligibility check without issuing anything. A
// purchase that already holds a refund short-circuits to not eligible; its
// telemetry is not recomputed.
func (s *Service) EvaluatePurchase(ctx context.Context, purchaseID snowflake.ID) (*domain.EvaluationResponse, error) {
	purchase, err := s.purchaseSvc.Get(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPurchaseID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.EvaluationResponse{
			Eligible:    false,
			ReasonCode:  domain.ErrAlreadyRefunded.Error(),
			RuleVersion: existing.RuleVersion,
		}, nil
	}

	telemetry, expectedDurationMs, err := s.telemetryForPurchase(ctx, purchase)
	if err != nil {
		return nil, err
	}

	result := evaluator.Evaluate(purchase.AmountCents, telemetry, expectedDurationMs, s.policy.Get())
	return &domain.EvaluationResponse{
		Eligible:         result.Eligible,
		ReasonCode:       result.ReasonCode,
		AmountCents:      result.AmountCents,
		RuleVersion:      result.RuleVersion,
		AppliedRule:      result.AppliedRule,
		BufferRatio:      result.BufferRatio,
		DowntimeRatio:    result.DowntimeRatio,
		TelemetrySummary: telemetry,
	}, nil
}

// IssueRefund creates and submits the refund for an eligible purchase.
func (s *Service) IssueRefund(ctx context.Context, purchaseID snowflake.ID, reasonCode string) (*domain.Refund, error) {
	purchase, err := s.purchaseSvc.Get(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPurchaseID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyRefunded
	}

	telemetry, expectedDurationMs, err := s.telemetryForPurchase(ctx, purchase)
	if err != nil {
		return nil, err
	}

	result := evaluator.Evaluate(purchase.AmountCents, telemetry, expectedDurationMs, s.policy.Get())
	if !result.Eligible {
		return nil, domain.ErrNotEligible
	}

	snapshot := domain.TelemetrySnapshot{
		TelemetrySummary: telemetry,
		BufferRatio:      result.BufferRatio,
		DowntimeRatio:    result.DowntimeRatio,
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(reasonCode)
	if reason == "" {
		reason = result.ReasonCode
	}

	refund := domain.Refund{
		ID:               s.genID.Generate(),
		PurchaseID:       purchaseID,
		AmountCents:      result.AmountCents,
		ReasonCode:       reason,
		AppliedRule:      result.AppliedRule,
		RuleVersion:      result.RuleVersion,
		TelemetrySummary: datatypes.JSON(snapshotJSON),
		CreatedAt:        s.clock.Now(),
	}

	inserted, err := s.repo.Insert(ctx, s.db, &refund)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost the race against a concurrent issuer.
		return nil, domain.ErrAlreadyRefunded
	}

	isFull := refund.AmountCents >= purchase.AmountCents
	if err := s.purchaseSvc.MarkRefunded(ctx, purchaseID, isFull); err != nil {
		return nil, err
	}
	if isFull {
		if err := s.entitlementSvc.RevokeForPurchase(ctx, purchaseID); err != nil {
			return nil, err
		}
	}
	s.metrics.RecordRefund(refund.AppliedRule, refund.AmountCents)

	if err := s.submit(ctx, &refund, purchase); err != nil {
		// The refund row stays with processed_at NULL; the retry sweep
		// or an operator resubmits without re-evaluating eligibility.
		s.log.Error("refund submission failed",
			zap.String("refund_id", refund.ID.String()),
			zap.Error(err),
		)
		return &refund, err
	}

	s.notifyPayer(ctx, &refund, purchase)
	return &refund, nil
}

// RetrySweep resubmits refunds whose processor call never succeeded.
func (s *Service) RetrySweep(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-retryGrace)
	pending, err := s.repo.FindUnprocessed(ctx, s.db, cutoff, 50)
	if err != nil {
		return err
	}

	for i := range pending {
		refund := &pending[i]
		purchase, err := s.purchaseSvc.Get(ctx, refund.PurchaseID)
		if err != nil {
			s.log.Warn("retry sweep skipping refund",
				zap.String("refund_id", refund.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.submit(ctx, refund, purchase); err != nil {
			s.log.Warn("retry sweep submission failed",
				zap.String("refund_id", refund.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) submit(ctx context.Context, refund *domain.Refund, purchase *purchasedomain.Purchase) error {
	if purchase.ExternalPaymentID == nil {
		return purchasedomain.ErrInvalidPaymentID
	}

	attempt := s.clock.Now()
	err := s.processor.SubmitRefund(ctx, processor.RefundRequest{
		IdempotencyKey: fmt.Sprintf("%s-%d", refund.ID.String(), attempt.Unix()),
		PaymentID:      *purchase.ExternalPaymentID,
		AmountMoney: processor.Money{
			Amount:   refund.AmountCents,
			Currency: refundCurrency,
		},
		Reason: refund.ReasonCode,
	})
	if err != nil {
		return err
	}

	processedAt := s.clock.Now()
	if err := s.repo.MarkProcessed(ctx, s.db, refund.ID, processedAt); err != nil {
		return err
	}
	refund.ProcessedAt = &processedAt
	return nil
}

// notifyPayer is best effort; a notification failure never unwinds the
// refund.
func (s *Service) notifyPayer(ctx context.Context, refund *domain.Refund, purchase *purchasedomain.Purchase) {
	buyer, err := s.purchaseSvc.Buyer(ctx, purchase.BuyerID)
	if err != nil {
		s.log.Warn("refund notification skipped", zap.Error(err))
		return
	}

	subject := "Your refund is on the way"
	body := fmt.Sprintf(
		"<p>We have issued a refund of $%.2f for your purchase.</p><p>Reference: %s</p>",
		float64(refund.AmountCents)/100,
		refund.ID.String(),
	)
	if err := s.email.Send(ctx, []string{buyer.Email}, subject, body); err != nil {
		s.log.Warn("refund notification failed",
			zap.String("refund_id", refund.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) telemetryForPurchase(ctx context.Context, purchase *purchasedomain.Purchase) (playbackdomain.TelemetrySummary, int64, error) {
	telemetry, err := s.playbackSvc.Summarize(ctx, purchase.ID)
	if err != nil {
		return telemetry, 0, err
	}

	product, err := s.productRepo.FindByID(ctx, s.db, purchase.ProductID)
	if err != nil {
		return telemetry, 0, err
	}
	var expectedDurationMs int64
	if product != nil {
		expectedDurationMs = product.ExpectedDurationMs
	}
	return telemetry, expectedDurationMs, nil
}
