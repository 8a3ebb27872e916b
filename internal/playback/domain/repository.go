package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *Session) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Session, error)

	// AppendMetrics adds heartbeat deltas to an open session; closed
	// sessions accept no more data.
	AppendMetrics(ctx context.Context, db *gorm.DB, id snowflake.ID, watchMs, bufferMs, bufferEvents, fatalErrors int64) (int64, error)
	Close(ctx context.Context, db *gorm.DB, id snowflake.ID, endedAt time.Time) (int64, error)

	// SumByEntitlement aggregates all sessions of an entitlement in one
	// query; no sessions yields the zero summary.
	SumByEntitlement(ctx context.Context, db *gorm.DB, entitlementID snowflake.ID) (TelemetrySummary, error)
}
