// Package server wires the HTTP layer: router, middleware, routes, and
// graceful shutdown. It owns the database connection; the execution engine is
// built in main (backend selection happens there) and injected.
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

	"github.com/sakif/learnquest/internal/auth"
	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/handler"
	"github.com/sakif/learnquest/internal/middleware"
	sqliteRepo "github.com/sakif/learnquest/internal/repository/sqlite"
	"github.com/sakif/learnquest/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
	// JWTSecret enables the account endpoints. When empty, the server runs
	// in anonymous mode: /api/execute works, everything under /api that
	// needs an identity is not registered.
	JWTSecret      string
	SecureCookie   bool
	AllowedOrigins []string
}

// Server holds the router and the resources it owns.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the dependency chain: db → services → handlers → routes.
// Handlers see services, services see repository interfaces; nothing skips a
// layer.
func New(cfg Config, engine executor.Engine, supported map[string][]string, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(engine, supported); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(engine executor.Engine, supported map[string][]string) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	submissionSvc := service.NewSubmissionService(s.db, s.logger)
	executeHandler := handler.NewExecuteHandler(engine, submissionSvc, s.logger)
	healthHandler := handler.NewHealthHandler(supported)

	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set — accounts and history are disabled, executions are anonymous")
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)

		if tokens == nil {
			r.Post("/execute", executeHandler.HandleExecute)
			return
		}

		authSvc := service.NewAuthService(s.db, auth.NewPasswordService(), tokens, s.logger)
		authHandler := handler.NewAuthHandler(authSvc, s.config.SecureCookie, s.logger)
		submissionHandler := handler.NewSubmissionHandler(submissionSvc, s.logger)

		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		// Execution works anonymously; a valid token attributes the run.
		r.With(auth.OptionalAuth(tokens)).Post("/execute", executeHandler.HandleExecute)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Get("/submissions", submissionHandler.HandleList)
			r.Get("/submissions/{id}", submissionHandler.HandleGetByID)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s),
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // executions can take the full time limit
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
