package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	analyticsdomain "github.com/smallbiznis/warden/internal/analytics/domain"
	"github.com/smallbiznis/warden/internal/billing"
	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	"github.com/smallbiznis/warden/internal/observability"
	obsmiddleware "github.com/smallbiznis/warden/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/warden/internal/observability/metrics"
	"github.com/smallbiznis/warden/internal/ratelimit"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
	webhookdomain "github.com/smallbiznis/warden/internal/webhook/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
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
	engine    *gin.Engine
	cfg       config.Config
	licenses  licensedomain.Service
	security  securitydomain.Ledger
	analytics analyticsdomain.Service
	webhooks  webhookdomain.Service
	billing   *billing.Service
	limiter   *ratelimit.TieredLimiter
	metrics   *obsmetrics.Metrics
	clock     clock.Clock
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Licenses   licensedomain.Service
	Security   securitydomain.Ledger
	Analytics  analyticsdomain.Service
	Webhooks   webhookdomain.Service
	Billing    *billing.Service
	Limiter    *ratelimit.TieredLimiter
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Clock      clock.Clock
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		licenses:  p.Licenses,
		security:  p.Security,
		analytics: p.Analytics,
		webhooks:  p.Webhooks,
		billing:   p.Billing,
		limiter:   p.Limiter,
		metrics:   p.ObsMetrics,
		clock:     p.Clock,
	}

	// Gatekeeper pipeline for everything registered below. /health and
	// /metrics stay outside it so probes survive a store outage.
	s.engine.Use(s.ResponseHooks())
	s.engine.Use(s.BlockedIPCheck())
	s.engine.Use(s.RateLimit(ratelimit.TierGlobal))

	s.registerPublicRoutes()
	s.registerAdminRoutes()
	s.registerBillingRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/", s.Root)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.POST("/licenses", s.CreateLicense)
	admin.GET("/licenses", s.ListLicenses)
	admin.PATCH("/licenses/:id/revoke", s.RevokeLicense)
	admin.GET("/analytics", s.GetGlobalAnalytics)

	security := admin.Group("/security")
	{
		security.GET("/abuse", s.GetAbuseReport)
		security.POST("/unblock", s.UnblockIP)
	}
}

func (s *Server) registerBillingRoutes() {
	billingGroup := s.engine.Group("/billing")

	billingGroup.POST("/checkout", s.CreateCheckout)
	billingGroup.POST("/webhook", s.HandleBillingWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.RateLimit(ratelimit.TierAPI))
	api.Use(s.RateLimit(ratelimit.TierAuth))
	api.Use(s.APIAuthRequired())

	api.GET("/license/status", s.GetLicenseStatus)
	api.POST("/audio/process", s.ProcessAudio)
	api.GET("/analytics", s.GetLicenseAnalytics)
	api.GET("/webhooks", s.ListWebhooks)
}
