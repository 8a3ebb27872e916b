package square

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/courtside/paywall/internal/webhook/domain"
)

const signatureHeader = "X-Square-Hmacsha256-Signature"

type Config struct {
	SignatureKey string

	// SkipVerification accepts unsigned deliveries. It exists for Square's
	// endpoint-validation pings and local testing; production configuration
	// never sets it.
	SkipVerification bool
}

type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) Provider() string {
	return "square"
}

// Verify checks the HMAC-SHA256 signature Square computes over the exact
// notification URL concatenated with the raw request body.
func (a *Adapter) Verify(ctx context.Context, notificationURL string, payload []byte, headers http.Header) error {
	if a.cfg.SkipVerification {
		return nil
	}
	if a.cfg.SignatureKey == "" {
		return domain.ErrInvalidSignature
	}

	provided := strings.TrimSpace(headers.Get(signatureHeader))
	if provided == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.cfg.SignatureKey))
	_, _ = mac.Write([]byte(notificationURL))
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type squareEnvelope struct {
	EventID string         `json:"event_id"`
	Type    string         `json:"type"`
	Data    squareEventData `json:"data"`
}

type squareEventData struct {
	Object squareObject `json:"object"`
}

type squareObject struct {
	Payment *squarePayment `json:"payment"`
	Refund  *squareRefund  `json:"refund"`
}

type squarePayment struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	AmountMoney squareMoney `json:"amount_money"`
	CustomerID  string      `json:"customer_id"`

	// ReferenceID is the checkout reference the payment link was created
	// with; it is the only correlation handle on the first delivery.
	ReferenceID string `json:"reference_id"`
}

type squareRefund struct {
	PaymentID   string      `json:"payment_id"`
	AmountMoney squareMoney `json:"amount_money"`
}

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.PaymentEvent, error) {
	var envelope squareEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		// Older sandbox deliveries omit event_id; fall back to a digest of
		// the body so dedup still has a stable key.
		sum := sha256.Sum256(payload)
		eventID = hex.EncodeToString(sum[:])
	}

	switch strings.TrimSpace(envelope.Type) {
	case "payment.updated", "payment.created":
		return a.parsePayment(envelope, eventID, payload)
	case "refund.created":
		return a.parseRefund(envelope, eventID, payload)
	default:
		return nil, domain.ErrEventIgnored
	}
}

func (a *Adapter) parsePayment(envelope squareEnvelope, eventID string, payload []byte) (*domain.PaymentEvent, error) {
	payment := envelope.Data.Object.Payment
	if payment == nil || strings.TrimSpace(payment.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	var eventType domain.EventType
	switch strings.ToUpper(strings.TrimSpace(payment.Status)) {
	case "COMPLETED":
		eventType = domain.EventTypePaymentCompleted
	case "FAILED", "CANCELED":
		eventType = domain.EventTypePaymentFailed
	default:
		// APPROVED, PENDING and friends are intermediate states.
		return nil, domain.ErrEventIgnored
	}

	return &domain.PaymentEvent{
		Provider:        "square",
		ProviderEventID: eventID,
		Type:            eventType,
		PaymentID:       payment.ID,
		CheckoutRef:     strings.TrimSpace(payment.ReferenceID),
		PayerExternalID: strings.TrimSpace(payment.CustomerID),
		AmountCents:     payment.AmountMoney.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(payment.AmountMoney.Currency)),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) parseRefund(envelope squareEnvelope, eventID string, payload []byte) (*domain.PaymentEvent, error) {
	refund := envelope.Data.Object.Refund
	if refund == nil || strings.TrimSpace(refund.PaymentID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.PaymentEvent{
		Provider:          "square",
		ProviderEventID:   eventID,
		Type:              domain.EventTypeRefundCreated,
		PaymentID:         refund.PaymentID,
		RefundAmountCents: refund.AmountMoney.Amount,
		Currency:          strings.ToUpper(strings.TrimSpace(refund.AmountMoney.Currency)),
		RawPayload:        payload,
	}, nil
}
