package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/courtside/paywall/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyCheckoutIP  = "checkout:ip:%s"
	keyWebhookProv = "webhook:provider:%s"
)

// PublicLimiter throttles the two unauthenticated surfaces: checkout
// creation per client IP and webhook ingestion per provider. A nil limiter
// (rate limiting disabled) allows everything.
type PublicLimiter struct {
	enabled bool

	bucket *TokenBucket

	checkoutRate  float64
	checkoutBurst int
	webhookRate   float64
	webhookBurst  int
}

func NewPublicLimiter(cfg config.Config) (*PublicLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if cfg.CheckoutRate <= 0 || cfg.CheckoutBurst <= 0 {
		return nil, errors.New("checkout rate limit must be positive")
	}
	if cfg.WebhookRate <= 0 || cfg.WebhookBurst <= 0 {
		return nil, errors.New("webhook rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &PublicLimiter{
		enabled:       true,
		bucket:        NewTokenBucket(client),
		checkoutRate:  cfg.CheckoutRate,
		checkoutBurst: cfg.CheckoutBurst,
		webhookRate:   cfg.WebhookRate,
		webhookBurst:  cfg.WebhookBurst,
	}, nil
}

func (l *PublicLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *PublicLimiter) AllowCheckout(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutIP, strings.TrimSpace(clientIP)), l.checkoutRate, l.checkoutBurst)
}

func (l *PublicLimiter) AllowWebhook(ctx context.Context, provider string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWebhookProv, strings.TrimSpace(provider)), l.webhookRate, l.webhookBurst)
}
