// Package processor holds the outbound client for the external payment
// processor. Only the refund call is needed here; charging happens on the
// provider's hosted checkout page.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/courtside/paywall/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RefundRequest is the wire form of a refund submission. The idempotency key
// makes a retried call have at most one effect on the processor side.
type RefundRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	PaymentID      string `json:"payment_id"`
	AmountMoney    Money  `json:"amount_money"`
	Reason         string `json:"reason"`
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Client interface {
	SubmitRefund(ctx context.Context, req RefundRequest) error
}

var (
	ErrNotConfigured = errors.New("processor_not_configured")
	ErrRefundFailed  = errors.New("processor_refund_failed")
)

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(p Params) Client {
	timeout := time.Duration(p.Cfg.ProcessorTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &httpClient{
		baseURL: p.Cfg.ProcessorBaseURL,
		token:   p.Cfg.ProcessorToken,
		http:    &http.Client{Timeout: timeout},
		log:     p.Log.Named("processor.client"),
	}
}

func (c *httpClient) SubmitRefund(ctx context.Context, req RefundRequest) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/refunds", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("submit refund: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	c.log.Warn("processor rejected refund",
		zap.Int("status", resp.StatusCode),
		zap.String("payment_id", req.PaymentID),
		zap.ByteString("body", detail),
	)
	return fmt.Errorf("%w: status %d", ErrRefundFailed, resp.StatusCode)
}

var Module = fx.Module("processor",
	fx.Provide(NewClient),
)
