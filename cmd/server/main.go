// Datachat - conversational explorer for document-store collections
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/datachat/internal/api"
	"github.com/ashureev/datachat/internal/config"
	"github.com/ashureev/datachat/internal/explorer"
	"github.com/ashureev/datachat/internal/identity"
	"github.com/ashureev/datachat/internal/logging"
	"github.com/ashureev/datachat/internal/middleware"
	"github.com/ashureev/datachat/internal/query"
	"github.com/ashureev/datachat/internal/session"
	"github.com/ashureev/datachat/internal/store"
	"github.com/ashureev/datachat/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.Log)
	slog.SetDefault(logger)
	defer func() {
		if closeErr := logCloser.Close(); closeErr != nil {
			slog.Error("Failed to close log file", "error", closeErr)
		}
	}()

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "provider", cfg.Reasoning.Provider)

	// Initialize dependencies.
	conn, err := store.Open(context.Background(), cfg.StoreURL, store.Options{
		HideSystemDatabases: cfg.HideSystemDatabases,
	})
	if err != nil {
		slog.Error("Failed to initialize store connector", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := conn.Close(closeCtx); closeErr != nil {
			slog.Error("Failed to close store connector", "error", closeErr)
		}
	}()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := conn.Ping(pingCtx); err != nil {
		// Listing surfaces the error to users per request; startup continues.
		slog.Warn("Store health check failed", "error", err)
	} else {
		slog.Info("Store connected")
	}
	cancelPing()

	if err := os.MkdirAll(cfg.ChartDir, 0o755); err != nil {
		slog.Error("Failed to create chart directory", "dir", cfg.ChartDir, "error", err)
		os.Exit(1)
	}

	reasoner, err := query.NewReasoner(cfg.Reasoning)
	if err != nil {
		slog.Error("Failed to initialize reasoning client", "error", err)
		os.Exit(1)
	}
	engine := query.NewEngine(reasoner, query.NewChartRenderer(cfg.ChartDir), cfg.Reasoning)
	slog.Info("Query engine initialized", "reasoner", reasoner.Name(), "model", cfg.Reasoning.Model)

	// Initialize services.
	registry := session.NewRegistry(cfg.SessionTTL)
	svc := explorer.NewService(conn, engine, cfg.PreviewRows)

	// Initialize handlers.
	baseHandler := api.NewHandler(svc, cfg.ChartDir)
	healthHandler := api.NewHealthHandler(conn, registry)
	wsHandler := api.NewChatSocket(svc, registry, cfg.AllowedOrigins, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Static assets need no session.
	r.Handle("/static/*", web.StaticHandler())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(registry, cfg.IsDevelopment()))

		healthHandler.RegisterHealth(r)
		baseHandler.RegisterRoutes(r)

		// WebSocket endpoint.
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Create server.
	// Note: chat requests wait on the reasoning service, so WriteTimeout
	// must exceed the reasoning timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Reasoning.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartChartSweeper(ctx, registry, cfg.ChartDir, cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	registry.Flush()
	slog.Info("Server stopped successfully")
}
