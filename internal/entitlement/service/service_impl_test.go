package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	"github.com/courtside/paywall/internal/entitlement/domain"
	"github.com/courtside/paywall/internal/entitlement/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Entitlement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, _ := snowflake.NewNode(1)
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, node, fake
}

func TestIssueForPurchaseMintsOneToken(t *testing.T) {
	svc, node, _ := newTestService(t)
	purchaseID := node.Generate()

	first, err := svc.IssueForPurchase(context.Background(), purchaseID, nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.TokenID)

	// A replayed issue returns the existing entitlement, not a second token.
	second, err := svc.IssueForPurchase(context.Background(), purchaseID, nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.TokenID, second.TokenID)
}

func TestIssueForPurchaseUsesProductEnd(t *testing.T) {
	svc, node, fake := newTestService(t)

	endsAt := fake.Now().Add(72 * time.Hour)
	entitlement, err := svc.IssueForPurchase(context.Background(), node.Generate(), &endsAt)
	require.NoError(t, err)
	require.Equal(t, endsAt, entitlement.ValidTo)

	// A product that already ended yields an entitlement that is born
	// expired; the row still exists for refund evaluation.
	past := fake.Now().Add(-time.Hour)
	ended, err := svc.IssueForPurchase(context.Background(), node.Generate(), &past)
	require.NoError(t, err)
	require.Equal(t, past, ended.ValidTo)

	_, err = svc.ResolveToken(context.Background(), ended.TokenID)
	require.ErrorIs(t, err, domain.ErrExpired)
}

func TestRevokeForPurchase(t *testing.T) {
	svc, node, _ := newTestService(t)
	purchaseID := node.Generate()

	entitlement, err := svc.IssueForPurchase(context.Background(), purchaseID, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeForPurchase(context.Background(), purchaseID))

	_, err = svc.ResolveToken(context.Background(), entitlement.TokenID)
	require.ErrorIs(t, err, domain.ErrRevoked)

	// Revoking again, or revoking a purchase with no entitlement, is a no-op.
	require.NoError(t, svc.RevokeForPurchase(context.Background(), purchaseID))
	require.NoError(t, svc.RevokeForPurchase(context.Background(), node.Generate()))
}

func TestResolveTokenWindow(t *testing.T) {
	svc, node, fake := newTestService(t)

	entitlement, err := svc.IssueForPurchase(context.Background(), node.Generate(), nil)
	require.NoError(t, err)

	resolved, err := svc.ResolveToken(context.Background(), entitlement.TokenID)
	require.NoError(t, err)
	require.Equal(t, entitlement.ID, resolved.ID)

	fake.Advance(25 * time.Hour)
	_, err = svc.ResolveToken(context.Background(), entitlement.TokenID)
	require.ErrorIs(t, err, domain.ErrExpired)
}

func TestResolveTokenUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResolveToken(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
