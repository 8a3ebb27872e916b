package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const purchaseColumns = `id, product_id, buyer_id, amount_cents, platform_fee_cents,
	processor_fee_cents, owner_net_cents, status, external_payment_id,
	payer_external_id, checkout_ref, return_url, paid_at, failed_at,
	refunded_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO purchases (
			id, product_id, buyer_id, amount_cents, platform_fee_cents,
			processor_fee_cents, owner_net_cents, status, external_payment_id,
			payer_external_id, checkout_ref, return_url, paid_at, failed_at,
			refunded_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.ProductID,
		purchase.BuyerID,
		purchase.AmountCents,
		purchase.PlatformFeeCents,
		purchase.ProcessorFeeCents,
		purchase.OwnerNetCents,
		purchase.Status,
		purchase.ExternalPaymentID,
		purchase.PayerExternalID,
		purchase.CheckoutRef,
		purchase.ReturnURL,
		purchase.PaidAt,
		purchase.FailedAt,
		purchase.RefundedAt,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	var item domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT `+purchaseColumns+`
		 FROM purchases
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

func (r *repo) FindByExternalPaymentID(ctx context.Context, db *gorm.DB, externalPaymentID string) (*domain.Purchase, error) {
	var item domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT `+purchaseColumns+`
		 FROM purchases
		 WHERE external_payment_id = ?
		 LIMIT 1`,
		externalPaymentID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByCheckoutRef(ctx context.Context, db *gorm.DB, checkoutRef string) (*domain.Purchase, error) {
	var item domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT `+purchaseColumns+`
		 FROM purchases
		 WHERE checkout_ref = ?
		 LIMIT 1`,
		checkoutRef,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateToPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, externalPaymentID string, payerExternalID *string, paidAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET status = ?, external_payment_id = ?, payer_external_id = ?,
			paid_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPaid,
		externalPaymentID,
		payerExternalID,
		paidAt,
		paidAt,
		id,
		domain.StatusCreated,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) UpdateToFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, failedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET status = ?, failed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFailed,
		failedAt,
		failedAt,
		id,
		domain.StatusCreated,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) UpdateToRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, refundedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET status = ?, refunded_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status,
		refundedAt,
		refundedAt,
		id,
		domain.StatusPaid,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) FindBuyerByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Buyer, error) {
	var item domain.Buyer
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, phone, created_at
		 FROM buyers
		 WHERE email = ?
		 LIMIT 1`,
		email,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindBuyerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Buyer, error) {
	var item domain.Buyer
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, phone, created_at
		 FROM buyers
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

func (r *repo) InsertBuyer(ctx context.Context, db *gorm.DB, buyer *domain.Buyer) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO buyers (id, email, phone, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`,
		buyer.ID,
		buyer.Email,
		buyer.Phone,
		buyer.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
