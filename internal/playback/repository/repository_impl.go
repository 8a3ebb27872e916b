package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/playback/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO playback_sessions (
			id, entitlement_id, total_watch_ms, total_buffer_ms,
			buffer_events, fatal_errors, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.EntitlementID,
		session.TotalWatchMs,
		session.TotalBufferMs,
		session.BufferEvents,
		session.FatalErrors,
		session.StartedAt,
		session.EndedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Session, error) {
	var item domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT id, entitlement_id, total_watch_ms, total_buffer_ms,
			buffer_events, fatal_errors, started_at, ended_at
		 FROM playback_sessions
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) AppendMetrics(ctx context.Context, db *gorm.DB, id snowflake.ID, watchMs, bufferMs, bufferEvents, fatalErrors int64) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE playback_sessions
		 SET total_watch_ms = total_watch_ms + ?,
			total_buffer_ms = total_buffer_ms + ?,
			buffer_events = buffer_events + ?,
			fatal_errors = fatal_errors + ?
		 WHERE id = ? AND ended_at IS NULL`,
		watchMs,
		bufferMs,
		bufferEvents,
		fatalErrors,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, id snowflake.ID, endedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE playback_sessions
		 SET ended_at = ?
		 WHERE id = ? AND ended_at IS NULL`,
		endedAt,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) SumByEntitlement(ctx context.Context, db *gorm.DB, entitlementID snowflake.ID) (domain.TelemetrySummary, error) {
	var summary domain.TelemetrySummary
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(total_watch_ms), 0) AS watch_ms,
			COALESCE(SUM(total_buffer_ms), 0) AS buffer_ms,
			COALESCE(SUM(buffer_events), 0) AS buffer_events,
			COALESCE(SUM(fatal_errors), 0) AS fatal_errors
		 FROM playback_sessions
		 WHERE entitlement_id = ?`,
		entitlementID,
	).Scan(&summary).Error
	if err != nil {
		return domain.TelemetrySummary{}, err
	}
	return summary, nil
}
