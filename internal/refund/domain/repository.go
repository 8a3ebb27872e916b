package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert is conflict-tolerant on purchase_id and reports whether this
	// call created the row.
	Insert(ctx context.Context, db *gorm.DB, refund *Refund) (bool, error)
	FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*Refund, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error

	// FindUnprocessed returns refunds whose processor submission has not
	// succeeded and that are older than the grace window.
	FindUnprocessed(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]Refund, error)
}
