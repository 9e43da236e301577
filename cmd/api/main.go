package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/adapters/cache"
	"github.com/carebridge/clinconsult/internal/adapters/events"
	"github.com/carebridge/clinconsult/internal/adapters/store"
	"github.com/carebridge/clinconsult/internal/api/handlers"
	"github.com/carebridge/clinconsult/internal/api/middleware"
	"github.com/carebridge/clinconsult/internal/api/routes"
	"github.com/carebridge/clinconsult/internal/application/agents"
	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/anthropic"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/gemini"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/openai"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/redis"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/terminology"
	"github.com/carebridge/clinconsult/internal/infrastructure/observability"
	"github.com/carebridge/clinconsult/pkg/config"
	"github.com/carebridge/clinconsult/pkg/secrets"
)

func main() {
	// Hydrate environment from Vault before reading any configuration
	vaultResult, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv(""))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load Vault secrets")
	} else if vaultResult.Enabled {
		log.Info().Str("path", vaultResult.Path).Int("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("Vault secrets applied")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logging
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	log.Info().
		Str("service", cfg.OTEL.ServiceName).
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", cfg.Environment).
		Msg("Starting consultation API server")

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize JSON file stores
	patientStore, err := store.NewPatientStore(cfg.Store.PatientsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Store.PatientsFile).Msg("Failed to open patient store")
	}
	promptStore, err := store.NewPromptStore(cfg.Store.PromptsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Store.PromptsFile).Msg("Failed to open prompt store")
	}
	conversationStore := store.NewConversationStore()
	log.Info().Int("patients", patientStore.Count()).Msg("Stores initialized")

	// Initialize Redis client. The server runs without it: caching falls
	// back to memory and record events are disabled.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache and disabling record events")
		cacheProvider = cache.NewMemoryAdapter()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Msg("Redis client initialized successfully")
	}

	// Register the configured model vendors
	registry := services.NewModelRegistry(cfg.DefaultModel)
	if cfg.Anthropic.APIKey != "" {
		client, err := anthropic.NewClient(&cfg.Anthropic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Anthropic client")
		} else {
			registry.Register(client)
		}
	}
	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize OpenAI client")
		} else {
			registry.Register(client)
		}
	}
	if cfg.Gemini.APIKey != "" {
		client, err := gemini.NewClient(&cfg.Gemini)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			registry.Register(client)
		}
	}
	if len(registry.List()) == 0 {
		log.Fatal().Msg("No model vendor configured: set ANTHROPIC_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY")
	}

	// Initialize terminology client and the agent pipeline
	terminologyClient := terminology.NewClient(&cfg.Terminology, cacheProvider)
	pipeline := agents.NewPipeline(promptStore, terminologyClient)

	// Initialize services
	authService := services.NewAuthService(&cfg.Auth)
	chatService := services.NewChatService(conversationStore, patientStore, registry, pipeline, eventBus)
	patientService := services.NewPatientService(patientStore, eventBus)
	promptService := services.NewPromptService(promptStore, eventBus)
	terminologyService := services.NewTerminologyService(terminologyClient)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService)
	patientHandler := handlers.NewPatientHandler(patientService)
	promptHandler := handlers.NewPromptHandler(promptService)
	terminologyHandler := handlers.NewTerminologyHandler(terminologyService)

	var sseHandler *handlers.SSEHandler
	if eventBus != nil {
		sseHandler = handlers.NewSSEHandler(eventBus)
	}

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
	}

	// Set up router
	router := routes.NewRouter(
		authHandler,
		chatHandler,
		patientHandler,
		promptHandler,
		terminologyHandler,
		sseHandler,
		authService,
		cacheMiddleware,
		metrics,
		cfg.Server.StaticDir,
	)

	handler := router.SetupRoutes()

	// Create HTTP server. WriteTimeout stays at zero so SSE streams are
	// not cut off mid-conversation.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// Close event bus
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}
