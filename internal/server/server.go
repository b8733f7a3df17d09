package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/config"
	"github.com/promptforge/optimizer-api/internal/dispatch"
	"github.com/promptforge/optimizer-api/internal/ledger"
	"github.com/promptforge/optimizer-api/internal/registry"
	"github.com/promptforge/optimizer-api/internal/reporting"
	"github.com/promptforge/optimizer-api/internal/server/middleware"
	"github.com/promptforge/optimizer-api/internal/server/validator"
)

type Server struct {
	router       *gin.Engine
	config       *config.Config
	logger       *zap.Logger
	orchestrator *dispatch.Orchestrator
	reporting    *reporting.Service
	registry     *registry.Registry
	ledger       *ledger.Ledger
	validator    *validator.Validator
}

func New(cfg *config.Config, logger *zap.Logger, o *dispatch.Orchestrator, rep *reporting.Service, reg *registry.Registry, l *ledger.Ledger) *Server {

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router:       engine,
		config:       cfg,
		logger:       logger,
		orchestrator: o,
		reporting:    rep,
		registry:     reg,
		ledger:       l,
		validator:    validator.New(),
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
