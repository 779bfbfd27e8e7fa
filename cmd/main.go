// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"eventhub/internal/auth"
	"eventhub/internal/cache"
	"eventhub/internal/config"
	"eventhub/internal/database"
	"eventhub/internal/handler"
	"eventhub/internal/repository"
	"eventhub/internal/service"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connect failed")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}
	logger.Info().Msg("connected to postgres")

	// ── 2. Optional Redis event cache ─────────────────────────────────────
	eventCache := cache.New(ctx, cfg.Redis.Addr, time.Minute, logger)
	defer eventCache.Close()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	eventRepo := repository.NewEventRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	eventSvc := service.NewEventService(eventRepo, eventCache, logger)
	userSvc := service.NewUserService(userRepo, tokens, logger)
	h := handler.NewEventHandler(eventSvc, userSvc, logger)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(handler.AccessLog(logger))
	r.Use(handler.CORS)
	r.Use(tokens.Middleware) // optional identity on every route

	r.Get("/health", handler.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.With(auth.Require).Get("/me", h.Me)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
			r.With(auth.Require).Post("/", h.CreateEvent)
			r.With(auth.Require).Put("/{id}", h.UpdateEvent)
			r.With(auth.Require).Delete("/{id}", h.DeleteEvent)
			r.With(auth.Require).Post("/{id}/join", h.JoinEvent)
			r.With(auth.Require).Post("/{id}/leave", h.LeaveEvent)
		})
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
