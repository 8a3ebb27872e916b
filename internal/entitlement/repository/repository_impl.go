package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/entitlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entitlement *domain.Entitlement) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO entitlements (
			id, purchase_id, token_id, status, valid_from, valid_to, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (purchase_id) DO NOTHING`,
		entitlement.ID,
		entitlement.PurchaseID,
		entitlement.TokenID,
		entitlement.Status,
		entitlement.ValidFrom,
		entitlement.ValidTo,
		entitlement.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*domain.Entitlement, error) {
	var item domain.Entitlement
	err := db.WithContext(ctx).Raw(
		`SELECT id, purchase_id, token_id, status, valid_from, valid_to, created_at
		 FROM entitlements
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

func (r *repo) UpdateToRevoked(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE entitlements
		 SET status = ?
		 WHERE purchase_id = ? AND status = ?`,
		domain.StatusRevoked,
		purchaseID,
		domain.StatusActive,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) FindByTokenID(ctx context.Context, db *gorm.DB, tokenID string) (*domain.Entitlement, error) {
	var item domain.Entitlement
	err := db.WithContext(ctx).Raw(
		`SELECT id, purchase_id, token_id, status, valid_from, valid_to, created_at
		 FROM entitlements
		 WHERE token_id = ?
		 LIMIT 1`,
		tokenID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
