package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	entitlementservice "github.com/courtside/paywall/internal/entitlement/service"
	"github.com/courtside/paywall/internal/playback/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	EntitlementSvc *entitlementservice.Service
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	entitlementSvc *entitlementservice.Service
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("playback.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		entitlementSvc: p.EntitlementSvc,
	}
}

// OpenSession starts a playback session for a valid entitlement token.
func (s *Service) OpenSession(ctx context.Context, tokenID string) (*domain.Session, error) {
	entitlement, err := s.entitlementSvc.ResolveToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		ID:            s.genID.Generate(),
		EntitlementID: entitlement.ID,
		StartedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Heartbeat appends client-reported metric deltas to an open session.
func (s *Service) Heartbeat(ctx context.Context, sessionID snowflake.ID, watchMs, bufferMs, bufferEvents, fatalErrors int64) error {
	if watchMs < 0 || bufferMs < 0 || bufferEvents < 0 || fatalErrors < 0 {
		return domain.ErrInvalidMetrics
	}

	rows, err := s.repo.AppendMetrics(ctx, s.db, sessionID, watchMs, bufferMs, bufferEvents, fatalErrors)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	session, err := s.repo.FindByID(ctx, s.db, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrSessionNotFound
	}
	return domain.ErrSessionClosed
}

func (s *Service) CloseSession(ctx context.Context, sessionID snowflake.ID) error {
	rows, err := s.repo.Close(ctx, s.db, sessionID, s.clock.Now())
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	session, err := s.repo.FindByID(ctx, s.db, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrSessionNotFound
	}
	// Closing twice is a reconnect artifact, not an error.
	return nil
}

// Summarize aggregates every session belonging to the purchase's
// entitlement. A purchase that never got an entitlement (never paid) yields
// the zero summary.
func (s *Service) Summarize(ctx context.Context, purchaseID snowflake.ID) (domain.TelemetrySummary, error) {
	entitlement, err := s.entitlementSvc.FindByPurchaseID(ctx, purchaseID)
	if err != nil {
		return domain.TelemetrySummary{}, err
	}
	if entitlement == nil {
		return domain.TelemetrySummary{}, nil
	}
	return s.repo.SumByEntitlement(ctx, s.db, entitlement.ID)
}
