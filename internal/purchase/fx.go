package purchase

import (
	"github.com/courtside/paywall/internal/purchase/domain"
	"github.com/courtside/paywall/internal/purchase/repository"
	"github.com/courtside/paywall/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
