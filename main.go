package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roshaninfordham/safebiteai/internal/adapter/foodkeeper"
	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
	"github.com/roshaninfordham/safebiteai/internal/adapter/llm"
	"github.com/roshaninfordham/safebiteai/internal/adapter/news"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfda"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfoodfacts"
	"github.com/roshaninfordham/safebiteai/internal/adapter/starterpack"
	"github.com/roshaninfordham/safebiteai/internal/adapter/tts"
	"github.com/roshaninfordham/safebiteai/internal/config"
	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
	"github.com/roshaninfordham/safebiteai/internal/metrics"
	"github.com/roshaninfordham/safebiteai/internal/policy"
	"github.com/roshaninfordham/safebiteai/internal/service"
	"github.com/roshaninfordham/safebiteai/internal/session"
	"github.com/roshaninfordham/safebiteai/internal/tools"
	handler "github.com/roshaninfordham/safebiteai/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.NewLoggerWithService("safebite", config.ParseLogLevel(cfg.LogLevel))

	logger.WithFields(logging.Fields{
		"http_port":      cfg.HTTPPort,
		"run_mode":       cfg.RunMode,
		"llm_configured": cfg.LLMConfigured(),
		"starter_pack":   cfg.StarterPackURL != "",
	}).Info("starting safebite api")

	// Shared HTTP executors
	providerHTTP := httpx.NewClient(httpx.Config{
		Timeout:        cfg.ProviderTimeout,
		MaxRetries:     cfg.ProviderMaxRetries,
		CircuitBreaker: true,
	})
	llmHTTP := httpx.NewClient(httpx.Config{Timeout: cfg.LLMTimeout, MaxRetries: 1})
	starterPackHTTP := httpx.NewClient(httpx.Config{Timeout: cfg.StarterPackTimeout})

	// Session store and metrics
	store := session.NewStore(session.StoreConfig{
		TTL:      cfg.SessionTTL,
		Capacity: cfg.SessionCapacity,
	}, logger)
	collector := metrics.New(store.Len)

	// Providers
	guidance, err := foodkeeper.Load(cfg.FoodKeeperPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load storage guidance")
	}
	llmClient := llm.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, llmHTTP, logger)

	providers := tools.Providers{
		Barcode:  openfoodfacts.NewClient(cfg.OpenFoodFactsURL, providerHTTP, logger),
		Recalls:  openfda.NewClient(cfg.OpenFDAURL, cfg.OpenFDAAPIKey, providerHTTP, logger),
		Guidance: guidance,
	}
	if llmClient != nil {
		providers.News = news.NewScanner(llmClient, cfg.LLMSearchModel, logger)
	}

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.Load(ctx, cfg.ToolPolicyPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize policy engine")
	}

	// Tool router
	router := tools.NewRouter(
		tools.WithGuard(policyEngine),
		tools.WithMetrics(collector),
		tools.WithLogger(logger),
	)
	if err := tools.RegisterBuiltins(router, providers); err != nil {
		logger.WithError(err).Fatal("failed to register tools")
	}

	deps := service.Deps{
		Store:      store,
		Router:     router,
		Providers:  providers,
		Summarizer: llm.NewSummarizer(llmClient, cfg.LLMModel, logger),
		LLM:        llmClient,
		Metrics:    collector,
		Logger:     logger,
	}
	if cfg.StarterPackURL != "" {
		deps.StarterPack = starterpack.NewClient(cfg.StarterPackURL, starterPackHTTP)
	}

	// Initialize service
	svc := service.New(deps, service.Options{
		RunMode:      domain.RunMode(cfg.RunMode),
		Model:        cfg.LLMModel,
		MaxToolTurns: cfg.MaxToolTurns,
		RunTimeout:   cfg.RunTimeout,
	})

	voice := tts.NewClient(tts.DefaultBaseURL, cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, providerHTTP)

	// Initialize handlers
	h := handler.NewHandler(svc, store,
		handler.WithVoice(voice),
		handler.WithMetrics(collector),
		handler.WithLogger(logger),
	)
	server := handler.NewServer(handler.ServerConfig{
		AllowOrigins:    cfg.AllowOrigins,
		BodyLimit:       cfg.BodyLimit,
		MockStarterPack: cfg.MockStarterPack,
	}, h)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	logger.Infof("SafeBite API listening on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shutdown server gracefully")
	}

	logger.Info("stopped")
}
