package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	playbackdomain "github.com/courtside/paywall/internal/playback/domain"
	"gorm.io/datatypes"
)

// Refund is the engine-issued refund record. The unique index on purchase_id
// enforces at-most-one-refund-per-purchase at the storage level; competing
// issuers lose the insert race, not the invariant.
type Refund struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	PurchaseID       snowflake.ID   `json:"purchase_id" gorm:"not null;uniqueIndex"`
	AmountCents      int64          `json:"amount_cents" gorm:"not null"`
	ReasonCode       string         `json:"reason_code" gorm:"type:text;not null"`
	AppliedRule      string         `json:"applied_rule" gorm:"type:text;not null"`
	RuleVersion      string         `json:"rule_version" gorm:"type:text;not null"`
	TelemetrySummary datatypes.JSON `json:"telemetry_summary" gorm:"type:jsonb;not null"`
	ProcessedAt      *time.Time     `json:"processed_at"`
	CreatedAt        time.Time      `json:"created_at" gorm:"not null"`
}

func (Refund) TableName() string { return "refunds" }

// TelemetrySnapshot is the audited decision input: the aggregated metrics
// plus the ratios computed from them, frozen at issue time. It serializes
// into Refund.TelemetrySummary.
type TelemetrySnapshot struct {
	playbackdomain.TelemetrySummary
	BufferRatio   float64 `json:"buffer_ratio"`
	DowntimeRatio float64 `json:"downtime_ratio"`
}

// EvaluationResponse is returned by the admin-facing eligibility check.
type EvaluationResponse struct {
	Eligible         bool                            `json:"eligible"`
	ReasonCode       string                          `json:"reason_code,omitempty"`
	AmountCents      int64                           `json:"amount_cents,omitempty"`
	RuleVersion      string                          `json:"rule_version"`
	AppliedRule      string                          `json:"applied_rule,omitempty"`
	BufferRatio      float64                         `json:"buffer_ratio"`
	DowntimeRatio    float64                         `json:"downtime_ratio"`
	TelemetrySummary playbackdomain.TelemetrySummary `json:"telemetry_summary"`
}

var (
	ErrAlreadyRefunded = errors.New("already_refunded")
	ErrNotEligible     = errors.New("refund_not_eligible")
	ErrNotFound        = errors.New("refund_not_found")
)
