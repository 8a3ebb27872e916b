package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	"github.com/courtside/paywall/internal/entitlement/domain"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultValidity bounds the entitlement window when the product has no
// scheduled end time.
const defaultValidity = 24 * time.Hour

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("entitlement.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// IssueForPurchase creates the entitlement for a freshly paid purchase.
// Replayed webhook deliveries land on the purchase_id unique index and get
// the already-existing row back; only one token is ever minted.
func (s *Service) IssueForPurchase(ctx context.Context, purchaseID snowflake.ID, productEndsAt *time.Time) (*domain.Entitlement, error) {
	now := s.clock.Now()

	// A product whose scheduled end has already passed yields an expired
	// entitlement rather than a fresh window; refund eligibility still
	// needs the row to exist.
	validTo := now.Add(defaultValidity)
	if productEndsAt != nil {
		validTo = productEndsAt.UTC()
	}

	entitlement := domain.Entitlement{
		ID:         s.genID.Generate(),
		PurchaseID: purchaseID,
		TokenID:    uuid.NewString(),
		Status:     domain.StatusActive,
		ValidFrom:  now,
		ValidTo:    validTo,
		CreatedAt:  now,
	}

	inserted, err := s.repo.Insert(ctx, s.db, &entitlement)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Info("entitlement issued",
			zap.String("purchase_id", purchaseID.String()),
			zap.Time("valid_to", validTo),
		)
		return &entitlement, nil
	}

	existing, err := s.repo.FindByPurchaseID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}
	return existing, nil
}

func (s *Service) FindByPurchaseID(ctx context.Context, purchaseID snowflake.ID) (*domain.Entitlement, error) {
	return s.repo.FindByPurchaseID(ctx, s.db, purchaseID)
}

// RevokeForPurchase kills playback access after a full refund. Revoking a
// purchase with no entitlement, or one already revoked, is a no-op.
func (s *Service) RevokeForPurchase(ctx context.Context, purchaseID snowflake.ID) error {
	rows, err := s.repo.UpdateToRevoked(ctx, s.db, purchaseID)
	if err != nil {
		return err
	}
	if rows > 0 {
		s.log.Info("entitlement revoked", zap.String("purchase_id", purchaseID.String()))
	}
	return nil
}

// ResolveToken returns the entitlement for a playback token if it is active
// and inside its validity window.
func (s *Service) ResolveToken(ctx context.Context, tokenID string) (*domain.Entitlement, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return nil, domain.ErrNotFound
	}

	entitlement, err := s.repo.FindByTokenID(ctx, s.db, tokenID)
	if err != nil {
		return nil, err
	}
	if entitlement == nil {
		return nil, domain.ErrNotFound
	}
	if entitlement.Status == domain.StatusRevoked {
		return nil, domain.ErrRevoked
	}
	if s.clock.Now().After(entitlement.ValidTo) {
		return nil, domain.ErrExpired
	}
	return entitlement, nil
}
