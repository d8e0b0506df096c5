package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/volunteer-hub/apiserver/config"
	"github.com/volunteer-hub/apiserver/internal/auth"
	"github.com/volunteer-hub/apiserver/internal/db"
	"github.com/volunteer-hub/apiserver/internal/handlers"
	"github.com/volunteer-hub/apiserver/internal/metrics"
	"github.com/volunteer-hub/apiserver/internal/mq"
	"github.com/volunteer-hub/apiserver/internal/services"
	"github.com/volunteer-hub/apiserver/internal/store"
	"go.uber.org/zap"
)

// Dependencies is everything the router needs. Stores are interfaces so
// tests can run the full HTTP surface against the memory store.
type Dependencies struct {
	Users    services.UserRepository
	Requests services.RequestRepository
	Notes    services.NoteRepository

	// DB backs the readiness probe; nil reports ready.
	DB handlers.Pinger
	// Events receives lifecycle events; nil disables publishing.
	Events services.EventPublisher

	Registry *prometheus.Registry
	Auth     config.AuthConfig
	Logger   *zap.Logger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(registry)

	requestOpts := []services.RequestOption{
		services.WithMetrics(collector),
		services.WithLogger(logger.Named("requests")),
	}
	if deps.Events != nil {
		requestOpts = append(requestOpts, services.WithEventPublisher(deps.Events))
	}
	requestService := services.NewRequestService(deps.Requests, deps.Notes, deps.Users, requestOpts...)
	userService := services.NewUserService(deps.Users, logger.Named("users"))

	resolver := auth.NewResolver(deps.Users, deps.Auth.JWTSecret, deps.Auth.TokenTTL)
	authMiddleware := handlers.RequireAuth(resolver, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.AccessLog(logger.Named("http"), collector),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/api/health", handlers.Health(deps.DB))
	router.Handle("/metrics", metrics.Handler(registry))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, resolver, authMiddleware, logger)
	})
	router.Route("/requests", func(r chi.Router) {
		handlers.RequestRouter(r, requestService, authMiddleware, logger)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware, logger)
	})

	return router
}

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	logger     *zap.Logger
}

// New connects to Postgres and the configured broker and constructs a
// Server.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open message queue: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := Dependencies{
		Users:    store.NewUserRepository(dbConn),
		Requests: store.NewRequestRepository(dbConn),
		Notes:    store.NewNoteRepository(dbConn),
		DB:       dbConn,
		Registry: registry,
		Auth:     cfg.Auth,
		Logger:   logger,
	}
	if events != nil {
		deps.Events = events
	}
	router := NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

func (s *Server) close() {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Warn("close message queue", zap.Error(err))
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
