package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nixxxo/local-llm/internal/config"
	"github.com/nixxxo/local-llm/internal/filter"
	"github.com/nixxxo/local-llm/internal/gateway"
	"github.com/nixxxo/local-llm/internal/ollama"
	"github.com/nixxxo/local-llm/internal/reputation"
	"github.com/nixxxo/local-llm/internal/sanitize"
	"github.com/nixxxo/local-llm/internal/server"
	"github.com/nixxxo/local-llm/internal/storage"
	"github.com/nixxxo/local-llm/internal/storage/sqlite"
	"github.com/nixxxo/local-llm/internal/telemetry"
)

const serviceName = "local-llm-gateway"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer(serviceName, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	metrics, shutdownMetrics, err := telemetry.InitMetrics(serviceName, logger)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", err.Error()))
		}
	}()

	var logStore *sqlite.Store
	if cfg.Storage.Path != "" {
		logStore, err = sqlite.New(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to open audit store: %v", err)
		}
		defer logStore.Close()
	}

	contentFilter, err := filter.New(cfg.Filter.ExtraPatterns...)
	if err != nil {
		log.Fatalf("Failed to compile content filter: %v", err)
	}

	store := reputation.NewStore(reputation.Config{
		PerMinuteLimit:    cfg.Limits.PerMinute,
		BurstThreshold:    cfg.Limits.BurstThreshold,
		ShortWindow:       cfg.Limits.ShortWindow,
		ResetWindow:       cfg.Limits.ResetWindow,
		BlacklistDuration: cfg.Limits.BlacklistDuration,
		IdleTTL:           cfg.Limits.IdleTTL,
	}, reputation.SystemClock())

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	store.StartSweeper(sweepCtx, cfg.Limits.SweepInterval, logger)

	client := ollama.New(
		ollama.WithBaseURL(cfg.Upstream.BaseURL),
		ollama.WithTimeout(cfg.Upstream.Timeout),
	)

	handler := gateway.NewHandler(
		store,
		sanitize.New(cfg.Models.Default, cfg.Models.Allowed),
		contentFilter,
		client,
		logger,
		metrics,
	)

	// A typed nil must not reach the interface or the audit middleware's
	// nil check stops working.
	var auditStore storage.RequestLogStore
	if logStore != nil {
		auditStore = logStore
	}
	srv := server.New(cfg.Server.Port, logger, auditStore)

	srv.Router.Post("/api/chat", handler.HandleChat)
	srv.Router.Post("/api/direct-chat", handler.HandleDirectChat)
	srv.Router.Post("/api/parameter-test", handler.HandleParameterTest)
	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigChan:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("gateway shutdown complete")
}
