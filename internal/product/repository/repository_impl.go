package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var item domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, slug, price_cents, platform_fee_percent,
			expected_duration_ms, state, starts_at, ends_at, created_at
		 FROM products
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

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (
			id, title, slug, price_cents, platform_fee_percent,
			expected_duration_ms, state, starts_at, ends_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Title,
		product.Slug,
		product.PriceCents,
		product.PlatformFeePercent,
		product.ExpectedDurationMs,
		product.State,
		product.StartsAt,
		product.EndsAt,
		product.CreatedAt,
	).Error
}
