package adapters

import (
	"context"
	"net/http"
	"strings"

	"github.com/courtside/paywall/internal/webhook/domain"
)

// Adapter translates one provider's webhook dialect: it authenticates a raw
// delivery and parses it into the canonical event union.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, notificationURL string, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*domain.PaymentEvent, error)
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	byName := make(map[string]Adapter, len(adapters))
	for _, adapter := range adapters {
		byName[strings.ToLower(adapter.Provider())] = adapter
	}
	return &Registry{adapters: byName}
}

func (r *Registry) Lookup(provider string) (Adapter, bool) {
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	return adapter, ok
}
