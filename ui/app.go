package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gobrick/app"
	"gobrick/internal"
	"gobrick/internal/api"
)

// App serves the evaluation API
type App struct {
	router  *chi.Mux
	service *app.EvaluationService
	events  *api.SSEHub
	config  Config
	logger  *internal.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// NewApp creates the HTTP application around an evaluation service.
// events may be nil, in which case /api/events is not served.
func NewApp(config Config, service *app.EvaluationService, events *api.SSEHub, logger *internal.Logger) *App {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 512 << 20
	}
	a := &App{
		router:  chi.NewRouter(),
		service: service,
		events:  events,
		config:  config,
		logger:  logger.With("Server"),
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5, "application/json", "text/html", "text/markdown"))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	if a.events != nil {
		a.router.Get("/api/events", a.events.HandleSSE)
	}

	a.router.Route("/api/evaluations", func(r chi.Router) {
		r.Post("/", a.handleEvaluate)
		r.Get("/", a.handleListEvaluations)
		r.Get("/export.xlsx", a.handleExportWorkbook)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetEvaluation)
			r.Get("/brick", a.handleGetBrick)
			r.Get("/frame", a.handleFrameField)
			r.Get("/direction", a.handleDirectionField)
			r.Get("/report", a.handleReport)
		})
	})
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then drains in-flight requests
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      a.router,
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
