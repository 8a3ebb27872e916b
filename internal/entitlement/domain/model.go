package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Entitlement is the time-bounded right to watch a purchased stream. Exactly
// one exists per paid purchase; the unique index on purchase_id is what makes
// webhook replays converge on a single row.
type Entitlement struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PurchaseID snowflake.ID `json:"purchase_id" gorm:"not null;uniqueIndex"`
	TokenID    string       `json:"token_id" gorm:"type:text;not null;uniqueIndex"`
	Status     Status       `json:"status" gorm:"type:text;not null"`
	ValidFrom  time.Time    `json:"valid_from" gorm:"not null"`
	ValidTo    time.Time    `json:"valid_to" gorm:"not null"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
}

func (Entitlement) TableName() string { return "entitlements" }

var (
	ErrNotFound = errors.New("entitlement_not_found")
	ErrRevoked  = errors.New("entitlement_revoked")
	ErrExpired  = errors.New("entitlement_expired")
)
