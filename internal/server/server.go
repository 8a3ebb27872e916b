package server

import (
	"context"
	"net/http"
	"time"

	"github.com/courtside/paywall/internal/config"
	"github.com/courtside/paywall/internal/entitlement"
	"github.com/courtside/paywall/internal/observability"
	"github.com/courtside/paywall/internal/playback"
	playbackservice "github.com/courtside/paywall/internal/playback/service"
	"github.com/courtside/paywall/internal/processor"
	"github.com/courtside/paywall/internal/product"
	"github.com/courtside/paywall/internal/providers/email"
	"github.com/courtside/paywall/internal/purchase"
	purchasedomain "github.com/courtside/paywall/internal/purchase/domain"
	"github.com/courtside/paywall/internal/ratelimit"
	"github.com/courtside/paywall/internal/refund"
	refundservice "github.com/courtside/paywall/internal/refund/service"
	"github.com/courtside/paywall/internal/webhook"
	webhookservice "github.com/courtside/paywall/internal/webhook/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	email.Module,
	processor.Module,
	product.Module,
	purchase.Module,
	entitlement.Module,
	playback.Module,
	webhook.Module,
	refund.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *observability.Metrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, metrics *observability.Metrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(log, metrics, registry)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	purchaseSvc purchasedomain.Service
	webhookSvc  *webhookservice.Service
	playbackSvc *playbackservice.Service
	refundSvc   *refundservice.Service
	limiter     *ratelimit.PublicLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	PurchaseSvc purchasedomain.Service
	WebhookSvc  *webhookservice.Service
	PlaybackSvc *playbackservice.Service
	RefundSvc   *refundservice.Service
	Limiter     *ratelimit.PublicLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		purchaseSvc: p.PurchaseSvc,
		webhookSvc:  p.WebhookSvc,
		playbackSvc: p.PlaybackSvc,
		refundSvc:   p.RefundSvc,
		limiter:     p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/checkout", s.CreateCheckout)
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)

	sessions := api.Group("/playback/sessions")
	{
		sessions.POST("", s.OpenPlaybackSession)
		sessions.POST("/:id/heartbeat", s.PlaybackHeartbeat)
		sessions.POST("/:id/close", s.ClosePlaybackSession)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.GET("/purchases/:id/refund-eligibility", s.GetRefundEligibility)
	admin.POST("/purchases/:id/refunds", s.IssueRefund)
}
