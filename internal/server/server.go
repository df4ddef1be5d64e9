// Package server wires the whole service together: database, services,
// handlers, middleware and routes. It is the composition root — main.go
// only loads config and calls New/Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudwear/cloudwear-api/internal/auth"
	"github.com/cloudwear/cloudwear-api/internal/config"
	"github.com/cloudwear/cloudwear-api/internal/handler"
	"github.com/cloudwear/cloudwear-api/internal/middleware"
	sqliteRepo "github.com/cloudwear/cloudwear-api/internal/repository/sqlite"
	"github.com/cloudwear/cloudwear-api/internal/service"
)

// Server owns the router, the configuration and the database handle.
// The database is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → services → handlers → routes
//
// Each layer receives only what it needs: services get repository
// interfaces, handlers get services, the router gets handlers.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens)

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// Middleware order matters: RequestID first so every later stage (and
// the request log line) can reference it; Recoverer before the
// logging/metrics wrappers so a panic still produces a 500 entry.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	passwords := auth.NewPasswordService(s.cfg.Auth.BcryptCost)

	authService := service.NewAuthService(s.db.Credentials(), s.db.Profiles(), tokens, passwords, s.logger)
	profileService := service.NewProfileService(s.db.Profiles(), s.logger)
	telemetryService := service.NewTelemetryService(s.db.Telemetry(), s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(profileService, s.logger)
	telemetryHandler := handler.NewTelemetryHandler(telemetryService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.RequestSize(s.cfg.Server.MaxBodyBytes))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics())

	s.router.Get("/", healthHandler.HandleHome)
	s.router.Get("/healthz", healthHandler.HandleHealthz)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		// Brute-force protection on the credential endpoints.
		r.Use(httprate.LimitByIP(s.cfg.Auth.RateLimit, time.Minute))

		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register-full", authHandler.HandleRegisterFull)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
		})
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.HandleCreate)
		r.Put("/{id}", userHandler.HandleUpdateComplete)
		r.Patch("/{id}", userHandler.HandleUpdatePartial)
	})

	s.router.Post("/biometricos", telemetryHandler.HandleIngest)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests,
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("database", s.cfg.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases the server's resources without running the serve loop.
// Used by tests that only exercise the router.
func (s *Server) Close() error {
	return s.db.Close()
}
