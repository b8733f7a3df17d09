package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/cmd"
	"github.com/promptforge/optimizer-api/internal/config"
	"github.com/promptforge/optimizer-api/internal/dispatch"
	"github.com/promptforge/optimizer-api/internal/ledger"
	"github.com/promptforge/optimizer-api/internal/platform/logger"
	"github.com/promptforge/optimizer-api/internal/platform/otel"
	"github.com/promptforge/optimizer-api/internal/ratelimit"
	"github.com/promptforge/optimizer-api/internal/registry"
	"github.com/promptforge/optimizer-api/internal/reporting"
	"github.com/promptforge/optimizer-api/internal/server"
	"github.com/promptforge/optimizer-api/internal/store/model"
	"github.com/promptforge/optimizer-api/internal/store/sqlite"
	"github.com/promptforge/optimizer-api/pkg/api"

	// Import adapters to trigger init() registration
	_ "github.com/promptforge/optimizer-api/internal/llm/anthropic"
	_ "github.com/promptforge/optimizer-api/internal/llm/google"
	_ "github.com/promptforge/optimizer-api/internal/llm/ollama"
	_ "github.com/promptforge/optimizer-api/internal/llm/openai"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	cmd.CheckForUpdates()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	shutdownTracer, err := otel.InitTracer("optimizer-api", log, os.Stdout)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", cfg.Server.DBPath)
	repo, err := sqlite.NewSQLiteStorage(dsn)
	if err != nil {
		log.Fatal("Failed to open ledger database", zap.Error(err))
	}
	defer repo.Close()

	var limiter ratelimit.Limiter
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unreachable at startup, continuing anyway", zap.Error(err))
		}
		limiter = ratelimit.NewRedisLimiter(rdb)
		log.Info("Rate limiter backed by Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		limiter = ratelimit.NewMemoryLimiter()
		log.Info("Rate limiter running in-process")
	}

	ldg := ledger.New(repo, model.QuotaLimits{
		QuickDailyMax:    cfg.Quota.QuickDailyMax,
		DeepDailyMax:     cfg.Quota.DeepDailyMax,
		TokenDailyMax:    cfg.Quota.TokenDailyMax,
		APICallsDailyMax: cfg.Quota.APICallsDailyMax,
	}, log)

	reconciler := ledger.NewReconciler(log, ldg)
	reconcilerCtx, cancelReconciler := context.WithCancel(context.Background())
	reconciler.Start(reconcilerCtx)
	defer cancelReconciler()

	reg := registry.New(log)
	for _, pCfg := range cfg.Providers {
		if err := reg.Register(pCfg); err != nil {
			log.Error("Failed to register provider",
				zap.String("provider", pCfg.Name),
				zap.Error(err),
			)
		}
	}

	defaults := make(map[api.RequestClass]api.ModelSelection, len(cfg.Dispatch.Defaults))
	for class, sel := range cfg.Dispatch.Defaults {
		defaults[api.RequestClass(class)] = api.ModelSelection{
			Provider: sel.Provider,
			Model:    sel.Model,
		}
	}

	orchestrator := dispatch.NewOrchestrator(dispatch.Config{
		InvokeTimeout: time.Duration(cfg.Dispatch.InvokeTimeoutSeconds) * time.Second,
		MaxAttempts:   cfg.Dispatch.MaxAttempts,
		RetryBackoff:  time.Duration(cfg.Dispatch.RetryBackoffMS) * time.Millisecond,
		RateLimit:     cfg.RateLimit.PerUserLimit,
		RateWindow:    time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		Defaults:      defaults,
	}, limiter, ldg, reconciler, reg, log)

	rep := reporting.NewService(ldg, log)

	srv := server.New(cfg, log, orchestrator, rep, reg, ldg)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting optimizer API", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}

	// Flush any queued usage commits before the process exits.
	reconciler.Stop()

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
}
