package entitlement

import (
	"github.com/courtside/paywall/internal/entitlement/repository"
	"github.com/courtside/paywall/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
