// Package main is the entry point for the learning assistant API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/assistant"
	"github.com/capitalize-ai/learning-assistant/internal/backend"
	"github.com/capitalize-ai/learning-assistant/internal/config"
	"github.com/capitalize-ai/learning-assistant/internal/handler"
	"github.com/capitalize-ai/learning-assistant/internal/legacy"
	"github.com/capitalize-ai/learning-assistant/internal/llm"
	"github.com/capitalize-ai/learning-assistant/internal/middleware"
	natsclient "github.com/capitalize-ai/learning-assistant/internal/nats"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
	"github.com/capitalize-ai/learning-assistant/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting learning assistant API server",
		zap.String("backend_url", cfg.BackendURL),
		zap.String("completion_provider", cfg.CompletionProvider),
		zap.Bool("course_generation_disabled", cfg.CourseGenDisabled),
	)

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "learning-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	api, err := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Token:   cfg.BackendToken,
	})
	if err != nil {
		log.Fatal("failed to create backend client", zap.Error(err))
	}

	completer, err := newCompleter(cfg, api)
	if err != nil {
		log.Fatal("failed to create completion provider", zap.Error(err))
	}
	executor := legacy.NewExecutor(completer, api, log.Named("legacy"))

	// Activity publishing is optional.
	var (
		natsClient    *natsclient.Client
		streamManager *natsclient.StreamManager
		publisher     assistant.Publisher
	)
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log.Named("nats"))
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager = natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		publisher = natsclient.NewPublisher(natsClient, log.Named("activity"))
	}

	hub := assistant.NewHub(func(userID string, skills []string) *assistant.Surface {
		return assistant.New(assistant.Config{
			UserID:            userID,
			Greeting:          cfg.Greeting,
			ContextWindow:     cfg.ContextWindow,
			SystemPrompt:      cfg.SystemPrompt,
			Skills:            skills,
			CourseGenDisabled: cfg.CourseGenDisabled,
			GenerationTimeout: cfg.GenerationTimeout,
		}, api, executor, publisher, log)
	})

	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	go hub.RunEviction(evictCtx, cfg.SurfaceIdleTTL, cfg.SurfaceIdleTTL/4, log.Named("hub"))

	healthHandler := handler.NewHealthHandler(natsClient)
	assistantHandler := handler.NewAssistantHandler(hub, log)
	conversationHandler := handler.NewConversationHandler(hub, log)
	streamHandler := handler.NewStreamHandler(hub, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Get("/health", healthHandler.Health)
		r.Get("/ready", healthHandler.Ready)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/assistant", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/", assistantHandler.Snapshot)
		r.Post("/messages", assistantHandler.Send)
		r.Post("/reset", assistantHandler.Reset)
		r.Get("/stream", streamHandler.Stream)

		r.Route("/course", func(r chi.Router) {
			if cfg.CourseScope != "" {
				r.Use(middleware.RequireScope(cfg.CourseScope))
			}
			r.Post("/confirm", assistantHandler.Confirm)
			r.Post("/regenerate", assistantHandler.Regenerate)
			r.Post("/abort", assistantHandler.Abort)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/open", conversationHandler.Open)
				r.Put("/name", conversationHandler.Rename)
				r.Delete("/", conversationHandler.Delete)
			})
		})

		if streamManager != nil {
			r.Get("/activity", handler.NewActivityHandler(streamManager, log).List)
		}
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stopEviction()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped", zap.Int("surfaces", hub.Len()))
}

// newCompleter picks the completion endpoint of the fallback path.
func newCompleter(cfg *config.Config, api *backend.Client) (legacy.Completer, error) {
	switch cfg.CompletionProvider {
	case config.ProviderOpenAI:
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		return &llm.PromptCompleter{Client: client, Model: cfg.CompletionModel, MaxTokens: 1024}, nil
	case config.ProviderAnthropic:
		client, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		return &llm.PromptCompleter{Client: client, Model: cfg.CompletionModel, MaxTokens: 1024}, nil
	default:
		return api, nil
	}
}
