package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is the dedup ledger for incoming webhook events, keyed by
// (provider, provider_event_id). At-least-once delivery replays land on the
// unique index and are recognized as already processed.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }

// EventType is the tagged union over provider events the engine reacts to.
// Anything a provider sends outside these variants parses to ErrEventIgnored
// and is dropped without touching state.
type EventType string

const (
	EventTypePaymentCompleted EventType = "payment_completed"
	EventTypePaymentFailed    EventType = "payment_failed"
	EventTypeRefundCreated    EventType = "refund_created"
)

// PaymentEvent is the canonical event parsed out of a provider payload.
// CheckoutRef is the reference the hosted checkout attached to the payment;
// it correlates the first delivery for a purchase that has no payment id
// stored yet.
type PaymentEvent struct {
	Provider          string
	ProviderEventID   string
	Type              EventType
	PaymentID         string
	CheckoutRef       string
	PayerExternalID   string
	AmountCents       int64
	Currency          string
	RefundAmountCents int64
	RawPayload        []byte
}

var (
	ErrProviderNotFound      = errors.New("webhook_provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_webhook_signature")
	ErrInvalidPayload        = errors.New("invalid_webhook_payload")
	ErrInvalidEvent          = errors.New("invalid_webhook_event")
	ErrEventIgnored          = errors.New("webhook_event_ignored")
	ErrEventAlreadyProcessed = errors.New("webhook_event_already_processed")
)
