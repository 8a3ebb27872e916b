package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session is one player connection. Reconnects open new sessions, so an
// entitlement usually accumulates several; metrics are summed across all of
// them at evaluation time.
type Session struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	EntitlementID snowflake.ID `json:"entitlement_id" gorm:"not null;index"`
	TotalWatchMs  int64        `json:"total_watch_ms" gorm:"not null;default:0"`
	TotalBufferMs int64        `json:"total_buffer_ms" gorm:"not null;default:0"`
	BufferEvents  int64        `json:"buffer_events" gorm:"not null;default:0"`
	FatalErrors   int64        `json:"fatal_errors" gorm:"not null;default:0"`
	StartedAt     time.Time    `json:"started_at" gorm:"not null"`
	EndedAt       *time.Time   `json:"ended_at"`
}

func (Session) TableName() string { return "playback_sessions" }

// TelemetrySummary is the aggregate over every session of an entitlement.
// StreamDownMs has no per-session source today; the field exists so a future
// outage feed can fill it without changing the evaluator contract.
type TelemetrySummary struct {
	WatchMs      int64 `json:"watch_ms"`
	BufferMs     int64 `json:"buffer_ms"`
	BufferEvents int64 `json:"buffer_events"`
	FatalErrors  int64 `json:"fatal_errors"`
	StreamDownMs int64 `json:"stream_down_ms"`
}

var (
	ErrSessionNotFound = errors.New("playback_session_not_found")
	ErrSessionClosed   = errors.New("playback_session_closed")
	ErrInvalidMetrics  = errors.New("invalid_playback_metrics")
)
