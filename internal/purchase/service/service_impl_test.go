package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	"github.com/courtside/paywall/internal/config"
	productdomain "github.com/courtside/paywall/internal/product/domain"
	productrepository "github.com/courtside/paywall/internal/product/repository"
	"github.com/courtside/paywall/internal/purchase/domain"
	"github.com/courtside/paywall/internal/purchase/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&productdomain.Product{}, &domain.Purchase{}, &domain.Buyer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, _ := snowflake.NewNode(1)
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fake,
		Cfg:         config.Config{CheckoutBaseURL: "https://pay.example.com"},
		Repo:        repository.Provide(),
		ProductRepo: productrepository.Provide(),
	})
	return svc, db, node, fake
}

func seedProduct(t *testing.T, db *gorm.DB, node *snowflake.Node, state productdomain.State) *productdomain.Product {
	t.Helper()
	product := &productdomain.Product{
		ID:                 node.Generate(),
		Title:              "Finals Night",
		Slug:               "finals-night",
		PriceCents:         10_000,
		PlatformFeePercent: 10,
		ExpectedDurationMs: 2 * 60 * 60 * 1000,
		State:              state,
		StartsAt:           time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC),
		CreatedAt:          time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestCreatePurchaseFreezesFeeSplit(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StatePublished)

	resp, err := svc.CreatePurchase(context.Background(), domain.CreatePurchaseRequest{
		ProductID:  product.ID,
		PayerEmail: "Fan@Example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.PurchaseID)
	require.True(t, strings.HasPrefix(resp.CheckoutURL, "https://pay.example.com/checkout/"))

	id, err := snowflake.ParseString(resp.PurchaseID)
	require.NoError(t, err)

	purchase, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCreated, purchase.Status)
	require.Equal(t, int64(10_000), purchase.AmountCents)
	require.Equal(t, int64(1_000), purchase.PlatformFeeCents)
	require.Equal(t, int64(320), purchase.ProcessorFeeCents)
	require.Equal(t, int64(8_680), purchase.OwnerNetCents)
	require.Equal(t, purchase.AmountCents, purchase.PlatformFeeCents+purchase.ProcessorFeeCents+purchase.OwnerNetCents)

	// Email is normalized before the buyer row is created.
	buyer, err := svc.Buyer(context.Background(), purchase.BuyerID)
	require.NoError(t, err)
	require.Equal(t, "fan@example.com", buyer.Email)

	// The checkout URL's trailing segment is the reference provider events
	// carry back; it must resolve to this purchase.
	require.NotEmpty(t, purchase.CheckoutRef)
	require.True(t, strings.HasSuffix(resp.CheckoutURL, "/"+purchase.CheckoutRef))
	byRef, err := svc.FindByCheckoutRef(context.Background(), purchase.CheckoutRef)
	require.NoError(t, err)
	require.Equal(t, purchase.ID, byRef.ID)
}

func TestCreatePurchaseReusesBuyerByEmail(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StateLive)

	first, err := svc.CreatePurchase(context.Background(), domain.CreatePurchaseRequest{
		ProductID:  product.ID,
		PayerEmail: "fan@example.com",
	})
	require.NoError(t, err)
	second, err := svc.CreatePurchase(context.Background(), domain.CreatePurchaseRequest{
		ProductID:  product.ID,
		PayerEmail: "fan@example.com",
	})
	require.NoError(t, err)
	require.NotEqual(t, first.PurchaseID, second.PurchaseID)

	var count int64
	require.NoError(t, db.Model(&domain.Buyer{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCreatePurchaseRejectsUnpurchasableProduct(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StateEnded)

	_, err := svc.CreatePurchase(context.Background(), domain.CreatePurchaseRequest{
		ProductID:  product.ID,
		PayerEmail: "fan@example.com",
	})
	require.ErrorIs(t, err, domain.ErrProductNotPurchasable)
}

func TestCreatePurchaseRejectsInvalidEmail(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StatePublished)

	_, err := svc.CreatePurchase(context.Background(), domain.CreatePurchaseRequest{
		ProductID:  product.ID,
		PayerEmail: "not-an-email",
	})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func createPurchase(t *testing.T, svc *Service, productID snowflake.ID) snowflake.ID {
	t.Helper()
	resp, err := svc.CreatePurchase(context.Background(), domain.CreatePurchaseRequest{
		ProductID:  productID,
		PayerEmail: "fan@example.com",
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	id, err := snowflake.ParseString(resp.PurchaseID)
	if err != nil {
		t.Fatalf("parse purchase id: %v", err)
	}
	return id
}

func TestMarkPaidIsIdempotentForSamePayment(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StatePublished)
	id := createPurchase(t, svc, product.ID)

	require.NoError(t, svc.MarkPaid(context.Background(), id, "pay_123", "cus_9"))
	// Replay of the same completion event is a no-op.
	require.NoError(t, svc.MarkPaid(context.Background(), id, "pay_123", "cus_9"))

	purchase, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, purchase.Status)
	require.NotNil(t, purchase.PaidAt)
	require.Equal(t, "pay_123", *purchase.ExternalPaymentID)
}

func TestMarkPaidRejectsConflictingPayment(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StatePublished)
	id := createPurchase(t, svc, product.ID)

	require.NoError(t, svc.MarkPaid(context.Background(), id, "pay_123", ""))
	err := svc.MarkPaid(context.Background(), id, "pay_other", "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkFailedThenPaidIsRejected(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StatePublished)
	id := createPurchase(t, svc, product.ID)

	require.NoError(t, svc.MarkFailed(context.Background(), id))
	err := svc.MarkPaid(context.Background(), id, "pay_123", "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	purchase, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, purchase.Status)
}

func TestMarkRefundedFullAndPartial(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StatePublished)

	full := createPurchase(t, svc, product.ID)
	require.NoError(t, svc.MarkPaid(context.Background(), full, "pay_full", ""))
	require.NoError(t, svc.MarkRefunded(context.Background(), full, true))
	purchase, err := svc.Get(context.Background(), full)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRefunded, purchase.Status)

	partial := createPurchase(t, svc, product.ID)
	require.NoError(t, svc.MarkPaid(context.Background(), partial, "pay_partial", ""))
	require.NoError(t, svc.MarkRefunded(context.Background(), partial, false))
	purchase, err = svc.Get(context.Background(), partial)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPartiallyRefunded, purchase.Status)

	// Replaying the same terminal transition is a no-op.
	require.NoError(t, svc.MarkRefunded(context.Background(), partial, false))
}

func TestMarkRefundedRequiresPaid(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	product := seedProduct(t, db, node, productdomain.StatePublished)
	id := createPurchase(t, svc, product.ID)

	err := svc.MarkRefunded(context.Background(), id, true)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestGetUnknownPurchase(t *testing.T) {
	svc, _, node, _ := newTestService(t)

	_, err := svc.Get(context.Background(), node.Generate())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
