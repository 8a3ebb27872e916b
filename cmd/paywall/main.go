package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courtside/paywall/internal/clock"
	"github.com/courtside/paywall/internal/config"
	"github.com/courtside/paywall/internal/logger"
	"github.com/courtside/paywall/internal/migration"
	"github.com/courtside/paywall/internal/observability"
	refundservice "github.com/courtside/paywall/internal/refund/service"
	"github.com/courtside/paywall/internal/server"
	"github.com/courtside/paywall/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const refundSweepInterval = 5 * time.Minute

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		server.Module,
		migration.Module,

		fx.Invoke(runRefundSweeper),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// runRefundSweeper retries refunds whose processor submission failed.
func runRefundSweeper(lc fx.Lifecycle, svc *refundservice.Service, log *zap.Logger) {
	log = log.Named("refund.sweeper")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(refundSweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := svc.RetrySweep(ctx); err != nil {
							log.Warn("refund retry sweep failed", zap.Error(err))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
