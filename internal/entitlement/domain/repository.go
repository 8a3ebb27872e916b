package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert is conflict-tolerant on purchase_id and reports whether this
	// call created the row.
	Insert(ctx context.Context, db *gorm.DB, entitlement *Entitlement) (bool, error)
	FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*Entitlement, error)
	FindByTokenID(ctx context.Context, db *gorm.DB, tokenID string) (*Entitlement, error)

	// UpdateToRevoked only touches active rows and reports how many
	// changed, so a replayed revocation is a no-op.
	UpdateToRevoked(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (int64, error)
}
