package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the purchase lifecycle state. Legal transitions:
// created → paid → refunded | partially_refunded, and created → failed.
// Nothing moves out of failed or a refunded state.
type Status string

const (
	StatusCreated           Status = "created"
	StatusPaid              Status = "paid"
	StatusFailed            Status = "failed"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

// Purchase owns the financial truth of a checkout: the gross amount and its
// fee split are frozen at creation time and never recomputed.
type Purchase struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	ProductID         snowflake.ID `json:"product_id" gorm:"not null;index"`
	BuyerID           snowflake.ID `json:"buyer_id" gorm:"not null;index"`
	AmountCents       int64        `json:"amount_cents" gorm:"not null"`
	PlatformFeeCents  int64        `json:"platform_fee_cents" gorm:"not null"`
	ProcessorFeeCents int64        `json:"processor_fee_cents" gorm:"not null"`
	OwnerNetCents     int64        `json:"owner_net_cents" gorm:"not null"`
	Status            Status       `json:"status" gorm:"type:text;not null"`
	ExternalPaymentID *string      `json:"external_payment_id" gorm:"uniqueIndex"`
	PayerExternalID   *string      `json:"payer_external_id"`
	CheckoutRef       string       `json:"checkout_ref" gorm:"type:text;not null;uniqueIndex"`
	ReturnURL         *string      `json:"return_url"`
	PaidAt            *time.Time   `json:"paid_at"`
	FailedAt          *time.Time   `json:"failed_at"`
	RefundedAt        *time.Time   `json:"refunded_at"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null"`
}

func (Purchase) TableName() string { return "purchases" }

// Buyer is the payer identity resolved at checkout, keyed by email.
type Buyer struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Email     string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Phone     *string      `json:"phone"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (Buyer) TableName() string { return "buyers" }
