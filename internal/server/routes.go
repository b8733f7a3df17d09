package server

import (
	"github.com/promptforge/optimizer-api/internal/server/middleware"
	v1 "github.com/promptforge/optimizer-api/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Tracing("optimizer-api"))
	s.router.Use(middleware.ErrorHandler(s.logger))

	// Per-IP burst shedding in front of everything else; the per-user
	// fixed window lives inside the orchestrator.
	ipLimiter := middleware.NewIPRateLimiter(
		s.config.RateLimit.IPRequestsPerSecond,
		s.config.RateLimit.IPBurst,
		s.logger,
	)
	s.router.Use(ipLimiter.Middleware())

	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group("/api/v1")
	api.Use(middleware.Identity())
	{
		optimizeHandler := v1.NewOptimizeHandler(s.orchestrator, s.validator)
		api.POST("/optimize", optimizeHandler.Optimize)
		api.POST("/evaluate", optimizeHandler.Evaluate)

		usageHandler := v1.NewUsageHandler(s.reporting)
		api.GET("/usage", usageHandler.Get)

		providerHandler := v1.NewProviderHandler(s.registry)
		api.GET("/providers", providerHandler.List)
	}

	admin := s.router.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuth(s.config.Server.AdminKeys))
	{
		quotaHandler := v1.NewQuotaHandler(s.ledger, s.validator)
		admin.PUT("/quotas/:user_id", quotaHandler.SetOverride)
	}
}
