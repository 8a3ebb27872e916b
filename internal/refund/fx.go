package refund

import (
	"github.com/courtside/paywall/internal/refund/repository"
	"github.com/courtside/paywall/internal/refund/service"
	"go.uber.org/fx"
)

var Module = fx.Module("refund",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
