package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*CheckoutResponse, error)
	Get(ctx context.Context, id snowflake.ID) (*Purchase, error)
	FindByExternalPaymentID(ctx context.Context, externalPaymentID string) (*Purchase, error)
	MarkPaid(ctx context.Context, id snowflake.ID, externalPaymentID string, payerExternalID string) error
	MarkFailed(ctx context.Context, id snowflake.ID) error
	MarkRefunded(ctx context.Context, id snowflake.ID, isFull bool) error
}

type CreatePurchaseRequest struct {
	ProductID  snowflake.ID `json:"product_id,string"`
	PayerEmail string       `json:"payer_email"`
	PayerPhone *string      `json:"payer_phone,omitempty"`
	ReturnURL  *string      `json:"return_url,omitempty"`
}

// CheckoutResponse is the checkout handle returned to the HTTP layer: the
// purchase id plus an opaque URL the buyer is redirected to.
type CheckoutResponse struct {
	PurchaseID  string `json:"purchase_id"`
	CheckoutURL string `json:"checkout_url"`
}

var (
	ErrNotFound              = errors.New("purchase_not_found")
	ErrProductNotPurchasable = errors.New("product_not_purchasable")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrInvalidPaymentID      = errors.New("invalid_payment_id")
)
