package api

import (
	"github.com/gin-gonic/gin"
	"github.com/leozw/domain-guardian/internal/api/handlers"
	"github.com/leozw/domain-guardian/internal/api/middleware"
	"github.com/leozw/domain-guardian/internal/config"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	Config  *config.Config
	Router  *gin.Engine
	Metrics *metrics.Collector
	handler *handlers.Handler
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, deps handlers.Deps, collector *metrics.Collector, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	server := &Server{
		Config:  cfg,
		Router:  router,
		Metrics: collector,
		handler: handlers.NewHandler(deps, logger),
		logger:  logger,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := s.handler

	s.Router.GET("/health", h.Health)
	s.Router.GET("/ready", h.Ready)
	if reg := s.Metrics.Registry(); reg != nil {
		s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := s.Router.Group("/api/v1")
	api.Use(middleware.AuthRequired(s.Config.Server.JWTSecret))
	{
		api.GET("/domains", h.ListDomains)
		api.POST("/domains", h.CreateDomain)
		api.GET("/domains/:id", h.GetDomain)
		api.POST("/domains/:id/register", h.RegisterDomain)
		api.POST("/domains/:id/verify", h.VerifyDomain)
		api.POST("/domains/:id/ssl", h.ProvisionSSL)

		api.GET("/domains/:id/dns-records", h.ListDNSRecords)
		api.PUT("/domains/:id/dns-records", h.ReconcileDNS)

		api.GET("/domains/:id/health", h.GetDomainHealth)
		api.GET("/domains/:id/checks", h.ListHealthChecks)
		api.POST("/domains/:id/check", h.CheckDomain)
		api.GET("/domains/:id/sla", h.GetSLA)
		api.GET("/domains/:id/analytics", h.ListAnalytics)

		api.GET("/alerts", h.ListAlerts)
		api.GET("/ssl/expiring", h.ListExpiringSSL)
	}

	admin := s.Router.Group("/api/v1/admin")
	admin.Use(middleware.AuthRequired(s.Config.Server.JWTSecret), middleware.AdminRequired())
	{
		admin.POST("/domains/:id/suspend", h.SuspendDomain)
		admin.POST("/domains/:id/reactivate", h.ReactivateDomain)
		admin.POST("/alerts/:id/resolve", h.ResolveAlert)
	}

	internal := s.Router.Group("/internal")
	internal.Use(middleware.TriggerAuth(s.Config.Server.TriggerToken))
	{
		internal.POST("/sweeps/:sweep", h.TriggerSweep)
	}
}
