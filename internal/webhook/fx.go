package webhook

import (
	"github.com/courtside/paywall/internal/config"
	"github.com/courtside/paywall/internal/webhook/adapters"
	"github.com/courtside/paywall/internal/webhook/adapters/square"
	"github.com/courtside/paywall/internal/webhook/repository"
	"github.com/courtside/paywall/internal/webhook/service"
	"go.uber.org/fx"
)

func NewAdapterRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		square.New(square.Config{
			SignatureKey:     cfg.WebhookSignatureKey,
			SkipVerification: cfg.WebhookSkipVerification,
		}),
	)
}

var Module = fx.Module("webhook",
	fx.Provide(repository.Provide),
	fx.Provide(NewAdapterRegistry),
	fx.Provide(service.NewService),
)
