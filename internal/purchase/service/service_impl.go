package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	"github.com/courtside/paywall/internal/config"
	"github.com/courtside/paywall/internal/fees"
	productdomain "github.com/courtside/paywall/internal/product/domain"
	"github.com/courtside/paywall/internal/purchase/domain"
	"github.com/courtside/paywall/pkg/db"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Repo        domain.Repository
	ProductRepo productdomain.Repository
}

// Service is the purchase ledger: it owns every purchase state transition
// and freezes the fee split at checkout time.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	repo        domain.Repository
	productRepo productdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("purchase.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Cfg,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
	}
}

func (s *Service) CreatePurchase(ctx context.Context, req domain.CreatePurchaseRequest) (*domain.CheckoutResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.PayerEmail))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	product, err := s.productRepo.FindByID(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, productdomain.ErrNotFound
	}
	if !product.Purchasable() {
		return nil, domain.ErrProductNotPurchasable
	}

	buyer, err := s.resolveBuyer(ctx, email, req.PayerPhone)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	split := fees.Split(product.PriceCents, product.PlatformFeePercent)
	checkoutRef := ulid.Make().String()

	purchase := domain.Purchase{
		ID:                s.genID.Generate(),
		ProductID:         product.ID,
		BuyerID:           buyer.ID,
		AmountCents:       split.GrossCents,
		PlatformFeeCents:  split.PlatformFeeCents,
		ProcessorFeeCents: split.ProcessorFeeCents,
		OwnerNetCents:     split.OwnerNetCents,
		Status:            domain.StatusCreated,
		CheckoutRef:       checkoutRef,
		ReturnURL:         req.ReturnURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &purchase); err != nil {
		return nil, err
	}

	productSlug := product.Slug
	if productSlug == "" {
		productSlug = slug.Make(product.Title)
	}

	s.log.Info("purchase created",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("product_id", product.ID.String()),
		zap.Int64("amount_cents", purchase.AmountCents),
	)

	return &domain.CheckoutResponse{
		PurchaseID:  purchase.ID.String(),
		CheckoutURL: fmt.Sprintf("%s/checkout/%s/%s", s.cfg.CheckoutBaseURL, productSlug, checkoutRef),
	}, nil
}

// resolveBuyer finds or creates the buyer row for an email. Concurrent
// checkouts for a new email race on the unique index; the loser re-reads.
func (s *Service) resolveBuyer(ctx context.Context, email string, phone *string) (*domain.Buyer, error) {
	existing, err := s.repo.FindBuyerByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	buyer := domain.Buyer{
		ID:        s.genID.Generate(),
		Email:     email,
		Phone:     phone,
		CreatedAt: s.clock.Now(),
	}
	inserted, err := s.repo.InsertBuyer(ctx, s.db, &buyer)
	if err != nil && !db.IsDuplicateKeyErr(err) {
		return nil, err
	}
	if inserted {
		return &buyer, nil
	}

	existing, err = s.repo.FindBuyerByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}
	return existing, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Purchase, error) {
	purchase, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, domain.ErrNotFound
	}
	return purchase, nil
}

func (s *Service) Buyer(ctx context.Context, id snowflake.ID) (*domain.Buyer, error) {
	buyer, err := s.repo.FindBuyerByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, domain.ErrNotFound
	}
	return buyer, nil
}

func (s *Service) FindByExternalPaymentID(ctx context.Context, externalPaymentID string) (*domain.Purchase, error) {
	externalPaymentID = strings.TrimSpace(externalPaymentID)
	if externalPaymentID == "" {
		return nil, domain.ErrInvalidPaymentID
	}
	return s.repo.FindByExternalPaymentID(ctx, s.db, externalPaymentID)
}

// FindByCheckoutRef resolves a purchase by the reference minted at checkout
// creation. Provider events carry it back before any payment id is stored.
func (s *Service) FindByCheckoutRef(ctx context.Context, checkoutRef string) (*domain.Purchase, error) {
	checkoutRef = strings.TrimSpace(checkoutRef)
	if checkoutRef == "" {
		return nil, nil
	}
	return s.repo.FindByCheckoutRef(ctx, s.db, checkoutRef)
}

// MarkPaid moves a purchase from created to paid. A replay carrying the same
// external payment id is a no-op; anything else out of order is rejected.
func (s *Service) MarkPaid(ctx context.Context, id snowflake.ID, externalPaymentID string, payerExternalID string) error {
	externalPaymentID = strings.TrimSpace(externalPaymentID)
	if externalPaymentID == "" {
		return domain.ErrInvalidPaymentID
	}

	var payerRef *string
	if trimmed := strings.TrimSpace(payerExternalID); trimmed != "" {
		payerRef = &trimmed
	}

	rows, err := s.repo.UpdateToPaid(ctx, s.db, id, externalPaymentID, payerRef, s.clock.Now())
	if err != nil {
		return err
	}
	if rows > 0 {
		s.log.Info("purchase paid",
			zap.String("purchase_id", id.String()),
			zap.String("external_payment_id", externalPaymentID),
		)
		return nil
	}

	purchase, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if purchase == nil {
		return domain.ErrNotFound
	}
	if purchase.Status == domain.StatusPaid &&
		purchase.ExternalPaymentID != nil &&
		*purchase.ExternalPaymentID == externalPaymentID {
		return nil
	}
	return domain.ErrInvalidTransition
}

func (s *Service) MarkFailed(ctx context.Context, id snowflake.ID) error {
	rows, err := s.repo.UpdateToFailed(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return err
	}
	if rows > 0 {
		s.log.Info("purchase failed", zap.String("purchase_id", id.String()))
		return nil
	}

	purchase, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if purchase == nil {
		return domain.ErrNotFound
	}
	if purchase.Status == domain.StatusFailed {
		return nil
	}
	return domain.ErrInvalidTransition
}

func (s *Service) MarkRefunded(ctx context.Context, id snowflake.ID, isFull bool) error {
	status := domain.StatusPartiallyRefunded
	if isFull {
		status = domain.StatusRefunded
	}

	rows, err := s.repo.UpdateToRefunded(ctx, s.db, id, status, s.clock.Now())
	if err != nil {
		return err
	}
	if rows > 0 {
		s.log.Info("purchase refunded",
			zap.String("purchase_id", id.String()),
			zap.Bool("full", isFull),
		)
		return nil
	}

	purchase, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if purchase == nil {
		return domain.ErrNotFound
	}
	if purchase.Status == status {
		return nil
	}
	return domain.ErrInvalidTransition
}
