package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	productdomain "github.com/courtside/paywall/internal/product/domain"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EnsureDemoCatalog seeds a couple of purchasable streams so a fresh local
// install can exercise checkout end to end. Inserts are keyed on the product
// slug, so repeated startups are no-ops.
func EnsureDemoCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	endsAt := now.Add(72 * time.Hour)

	demo := []productdomain.Product{
		{
			Title:              "Season Opener: Hawks vs Comets",
			PriceCents:         1499,
			PlatformFeePercent: 10,
			ExpectedDurationMs: 2 * 60 * 60 * 1000,
			State:              productdomain.StatePublished,
			StartsAt:           now,
			EndsAt:             &endsAt,
		},
		{
			Title:              "Championship Replay Pass",
			PriceCents:         799,
			PlatformFeePercent: 15,
			ExpectedDurationMs: 90 * 60 * 1000,
			State:              productdomain.StatePublished,
			StartsAt:           now,
		},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range demo {
			product := demo[i]
			product.ID = node.Generate()
			product.Slug = slug.Make(product.Title)
			product.CreatedAt = now

			result := tx.Exec(`
				INSERT INTO products (id, title, slug, price_cents, platform_fee_percent, expected_duration_ms, state, starts_at, ends_at, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (slug) DO NOTHING
			`, product.ID, product.Title, product.Slug, product.PriceCents, product.PlatformFeePercent,
				product.ExpectedDurationMs, product.State, product.StartsAt, product.EndsAt, product.CreatedAt)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
}
