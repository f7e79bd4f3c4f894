package server

import (
	"context"
	"creatorpulse/internal/config"
	"creatorpulse/internal/core"
	"creatorpulse/internal/logger"
	"creatorpulse/internal/newsletter"
	"creatorpulse/internal/persistence"
	"creatorpulse/internal/sources"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SourceService is the source management and sync surface the API needs.
type SourceService interface {
	AddSource(ctx context.Context, typ, name, url string) (*core.Source, error)
	ListSources(ctx context.Context, activeOnly bool) ([]core.Source, error)
	SetActive(ctx context.Context, id string, active bool) (*core.Source, error)
	RemoveSource(ctx context.Context, id string) error
	Sync(ctx context.Context, opts sources.SyncOptions) (*sources.SyncResult, error)
}

// DraftService is the draft and preference surface the API needs.
type DraftService interface {
	Generate(ctx context.Context, opts newsletter.GenerateOptions) (*newsletter.Result, error)
	Get(ctx context.Context, id string) (*core.Draft, error)
	List(ctx context.Context, status core.DraftStatus, limit int) ([]core.Draft, error)
	Review(ctx context.Context, id string) (*core.Draft, error)
	MarkSent(ctx context.Context, id string) (*core.Draft, error)
	Edit(ctx context.Context, id, subject, content string) (*core.Draft, error)
	SubmitFeedback(ctx context.Context, id string, rating int, comments string) (*core.DraftFeedback, error)
	Feedback(ctx context.Context, id string) ([]core.DraftFeedback, error)
	Due(ctx context.Context) ([]core.Draft, error)
	Preferences(ctx context.Context) (*core.UserPreferences, error)
	SavePreferences(ctx context.Context, p core.UserPreferences) (*core.UserPreferences, error)
}

var (
	_ SourceService = (*sources.Manager)(nil)
	_ DraftService  = (*newsletter.Service)(nil)
)

// Deps are the collaborators behind the API.
type Deps struct {
	DB          persistence.Database
	Sources     SourceService
	Drafts      DraftService
	SyncOptions sources.SyncOptions
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance
func New(deps Deps, cfg config.Server) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		config: cfg,
		log:    logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	// Generation and sync wait on external services.
	s.router.Use(middleware.Timeout(5 * time.Minute))
	s.router.Use(securityHeaders)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/", s.handleCreateSource)
			r.Patch("/{id}", s.handleUpdateSource)
			r.Delete("/{id}", s.handleDeleteSource)
		})

		r.Post("/sync", s.handleSync)
		r.Get("/trends", s.handleListTrends)

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", s.handleListDrafts)
			r.Post("/generate", s.handleGenerateDraft)
			r.Get("/due", s.handleDueDrafts)
			r.Get("/{id}", s.handleGetDraft)
			r.Patch("/{id}", s.handleEditDraft)
			r.Get("/{id}/feedback", s.handleListFeedback)
			r.Post("/{id}/feedback", s.handleSubmitFeedback)
			r.Post("/{id}/review", s.handleReviewDraft)
			r.Post("/{id}/sent", s.handleSentDraft)
		})

		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handleUpdatePreferences)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
