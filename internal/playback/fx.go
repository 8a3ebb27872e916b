package playback

import (
	"github.com/courtside/paywall/internal/playback/repository"
	"github.com/courtside/paywall/internal/playback/service"
	"go.uber.org/fx"
)

var Module = fx.Module("playback",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
