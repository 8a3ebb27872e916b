package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/refund/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const refundColumns = `id, purchase_id, amount_cents, reason_code, applied_rule,
	rule_version, telemetry_summary, processed_at, created_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, refund *domain.Refund) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO refunds (
			id, purchase_id, amount_cents, reason_code, applied_rule,
			rule_version, telemetry_summary, processed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (purchase_id) DO NOTHING`,
		refund.ID,
		refund.PurchaseID,
		refund.AmountCents,
		refund.ReasonCode,
		refund.AppliedRule,
		refund.RuleVersion,
		refund.TelemetrySummary,
		refund.ProcessedAt,
		refund.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*domain.Refund, error) {
	var item domain.Refund
	err := db.WithContext(ctx).Raw(
		`SELECT `+refundColumns+`
		 FROM refunds
		 WHERE purchase_id = ?
		 LIMIT 1`,
		purchaseID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE refunds
		 SET processed_at = ?
		 WHERE id = ? AND processed_at IS NULL`,
		processedAt,
		id,
	).Error
}

func (r *repo) FindUnprocessed(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]domain.Refund, error) {
	var items []domain.Refund
	err := db.WithContext(ctx).Raw(
		`SELECT `+refundColumns+`
		 FROM refunds
		 WHERE processed_at IS NULL AND created_at < ?
		 ORDER BY created_at
		 LIMIT ?`,
		olderThan,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
