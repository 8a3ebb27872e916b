package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	entitlementdomain "github.com/courtside/paywall/internal/entitlement/domain"
	entitlementrepository "github.com/courtside/paywall/internal/entitlement/repository"
	entitlementservice "github.com/courtside/paywall/internal/entitlement/service"
	"github.com/courtside/paywall/internal/playback/domain"
	"github.com/courtside/paywall/internal/playback/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type playbackTestEnv struct {
	svc    *Service
	entSvc *entitlementservice.Service
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
}

func newPlaybackTestEnv(t *testing.T) *playbackTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&entitlementdomain.Entitlement{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, _ := snowflake.NewNode(1)
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	entSvc := entitlementservice.NewService(entitlementservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  entitlementrepository.Provide(),
	})
	svc := NewService(Params{
		DB:             db,
		Log:            log,
		GenID:          node,
		Clock:          fake,
		Repo:           repository.Provide(),
		EntitlementSvc: entSvc,
	})
	return &playbackTestEnv{svc: svc, entSvc: entSvc, db: db, node: node, clock: fake}
}

func (e *playbackTestEnv) issueEntitlement(t *testing.T) (*entitlementdomain.Entitlement, snowflake.ID) {
	t.Helper()
	purchaseID := e.node.Generate()
	entitlement, err := e.entSvc.IssueForPurchase(context.Background(), purchaseID, nil)
	if err != nil {
		t.Fatalf("issue entitlement: %v", err)
	}
	return entitlement, purchaseID
}

func TestOpenSessionRequiresValidToken(t *testing.T) {
	env := newPlaybackTestEnv(t)

	_, err := env.svc.OpenSession(context.Background(), "no-such-token")
	require.ErrorIs(t, err, entitlementdomain.ErrNotFound)
}

func TestOpenSessionRejectsExpiredEntitlement(t *testing.T) {
	env := newPlaybackTestEnv(t)
	entitlement, _ := env.issueEntitlement(t)

	env.clock.Advance(25 * time.Hour)
	_, err := env.svc.OpenSession(context.Background(), entitlement.TokenID)
	require.ErrorIs(t, err, entitlementdomain.ErrExpired)
}

func TestHeartbeatAccumulatesMetrics(t *testing.T) {
	env := newPlaybackTestEnv(t)
	entitlement, purchaseID := env.issueEntitlement(t)

	session, err := env.svc.OpenSession(context.Background(), entitlement.TokenID)
	require.NoError(t, err)

	require.NoError(t, env.svc.Heartbeat(context.Background(), session.ID, 30_000, 2_000, 1, 0))
	require.NoError(t, env.svc.Heartbeat(context.Background(), session.ID, 60_000, 5_000, 2, 1))

	summary, err := env.svc.Summarize(context.Background(), purchaseID)
	require.NoError(t, err)
	require.Equal(t, int64(90_000), summary.WatchMs)
	require.Equal(t, int64(7_000), summary.BufferMs)
	require.Equal(t, int64(3), summary.BufferEvents)
	require.Equal(t, int64(1), summary.FatalErrors)
}

func TestHeartbeatRejectsNegativeDeltas(t *testing.T) {
	env := newPlaybackTestEnv(t)
	entitlement, _ := env.issueEntitlement(t)

	session, err := env.svc.OpenSession(context.Background(), entitlement.TokenID)
	require.NoError(t, err)

	err = env.svc.Heartbeat(context.Background(), session.ID, -1, 0, 0, 0)
	require.ErrorIs(t, err, domain.ErrInvalidMetrics)
}

func TestHeartbeatOnClosedSession(t *testing.T) {
	env := newPlaybackTestEnv(t)
	entitlement, _ := env.issueEntitlement(t)

	session, err := env.svc.OpenSession(context.Background(), entitlement.TokenID)
	require.NoError(t, err)
	require.NoError(t, env.svc.CloseSession(context.Background(), session.ID))

	err = env.svc.Heartbeat(context.Background(), session.ID, 1_000, 0, 0, 0)
	require.ErrorIs(t, err, domain.ErrSessionClosed)

	// Closing again is a reconnect artifact, not an error.
	require.NoError(t, env.svc.CloseSession(context.Background(), session.ID))
}

func TestHeartbeatUnknownSession(t *testing.T) {
	env := newPlaybackTestEnv(t)

	err := env.svc.Heartbeat(context.Background(), env.node.Generate(), 1_000, 0, 0, 0)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSummarizeSpansMultipleSessions(t *testing.T) {
	env := newPlaybackTestEnv(t)
	entitlement, purchaseID := env.issueEntitlement(t)

	for i := 0; i < 3; i++ {
		session, err := env.svc.OpenSession(context.Background(), entitlement.TokenID)
		require.NoError(t, err)
		require.NoError(t, env.svc.Heartbeat(context.Background(), session.ID, 10_000, 1_000, 1, 0))
		require.NoError(t, env.svc.CloseSession(context.Background(), session.ID))
	}

	summary, err := env.svc.Summarize(context.Background(), purchaseID)
	require.NoError(t, err)
	require.Equal(t, int64(30_000), summary.WatchMs)
	require.Equal(t, int64(3_000), summary.BufferMs)
	require.Equal(t, int64(3), summary.BufferEvents)
}

func TestSummarizeWithoutEntitlementIsZero(t *testing.T) {
	env := newPlaybackTestEnv(t)

	summary, err := env.svc.Summarize(context.Background(), env.node.Generate())
	require.NoError(t, err)
	require.Zero(t, summary.WatchMs)
	require.Zero(t, summary.BufferMs)
}
