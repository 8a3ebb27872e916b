package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	FindByExternalPaymentID(ctx context.Context, db *gorm.DB, externalPaymentID string) (*Purchase, error)
	FindByCheckoutRef(ctx context.Context, db *gorm.DB, checkoutRef string) (*Purchase, error)

	// The transition writers are guarded updates: they only touch rows in
	// the expected source state and report how many rows changed, so the
	// caller can tell a replay from an illegal transition.
	UpdateToPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, externalPaymentID string, payerExternalID *string, paidAt time.Time) (int64, error)
	UpdateToFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, failedAt time.Time) (int64, error)
	UpdateToRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, refundedAt time.Time) (int64, error)

	FindBuyerByEmail(ctx context.Context, db *gorm.DB, email string) (*Buyer, error)
	FindBuyerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Buyer, error)
	InsertBuyer(ctx context.Context, db *gorm.DB, buyer *Buyer) (bool, error)
}
