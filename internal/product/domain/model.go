package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// State tracks a stream product through its lifecycle. A product can be
// bought only while published or live.
type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
	StateLive      State = "live"
	StateEnded     State = "ended"
	StateArchived  State = "archived"
)

type Product struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	Title              string       `json:"title" gorm:"type:text;not null"`
	Slug               string       `json:"slug" gorm:"type:text;not null"`
	PriceCents         int64        `json:"price_cents" gorm:"not null"`
	PlatformFeePercent float64      `json:"platform_fee_percent" gorm:"not null"`
	ExpectedDurationMs int64        `json:"expected_duration_ms" gorm:"not null;default:0"`
	State              State        `json:"state" gorm:"type:text;not null"`
	StartsAt           time.Time    `json:"starts_at" gorm:"not null"`
	EndsAt             *time.Time   `json:"ends_at"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

func (p *Product) Purchasable() bool {
	return p.State == StatePublished || p.State == StateLive
}

var (
	ErrNotFound = errors.New("product_not_found")
)
