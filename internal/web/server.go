// Package web provides the HTTP server and handlers for fleet data ingestion.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/fleetdata/internal/config"
	"github.com/JonMunkholm/fleetdata/internal/core"
	"github.com/JonMunkholm/fleetdata/internal/history"
	"github.com/JonMunkholm/fleetdata/internal/report"
	"github.com/JonMunkholm/fleetdata/internal/session"
	webmw "github.com/JonMunkholm/fleetdata/internal/web/middleware"
)

// errReportsDisabled is returned when no report backend is configured.
var errReportsDisabled = errors.New("no report backend configured")

// ReportStore reads archived reports back by handle.
type ReportStore interface {
	Get(ctx context.Context, handle core.ReportHandle) (*report.Stored, error)
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Sessions  *session.Store
	Generator core.Generator
	History   history.Recorder
	Reports   ReportStore // nil unless reports are archived locally
	Uploads   *core.UploadLimiter
}

// Server is the HTTP server for the ingestion API.
type Server struct {
	cfg       *config.Config
	sessions  *session.Store
	generator core.Generator
	history   history.Recorder
	reports   ReportStore
	uploads   *core.UploadLimiter
	now       func() time.Time

	router       *chi.Mux
	server       *http.Server
	requestLimit *rateLimiter
	uploadLimit  *rateLimiter
}

// NewServer creates a new Server instance.
// Missing History and Uploads collaborators get in-memory defaults.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  deps.Sessions,
		generator: deps.Generator,
		history:   deps.History,
		reports:   deps.Reports,
		uploads:   deps.Uploads,
		now:       time.Now,
		router:    chi.NewRouter(),
	}
	if s.generator == nil {
		s.generator = core.GeneratorFunc(func(context.Context, core.Bundle) (core.ReportHandle, error) {
			return "", errReportsDisabled
		})
	}
	if s.history == nil {
		s.history = history.NewMemory()
	}
	if s.uploads == nil {
		s.uploads = core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	if cfg.Rate.Enabled {
		s.requestLimit = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.uploadLimit = newRateLimiter(cfg.Rate.UploadLimit, time.Minute)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.WriteTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.WriteTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.requestLimit != nil {
		s.router.Use(s.requestLimit.middleware(s.rateLimited))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(webmw.APIKeyAuth(&s.cfg.Security))

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/", s.handleSessionStatus)
			r.Delete("/", s.handleDeleteSession)
			r.With(s.limitUploads).Post("/generate", s.handleGenerate)

			r.Route("/slots/{slot}", func(r chi.Router) {
				r.Use(s.requireSlot)
				r.With(s.limitUploads).Post("/", s.handleUpload)
				r.Delete("/", s.handleClearSlot)
				r.Get("/preview", s.handlePreview)
			})
		})

		r.Get("/history", s.handleHistory)
		r.Get("/reports/{handle}", s.handleReport)
	})
}

// limitUploads applies the stricter per-IP limit to uploads and generation.
func (s *Server) limitUploads(next http.Handler) http.Handler {
	if s.uploadLimit == nil {
		return next
	}
	return s.uploadLimit.middleware(s.rateLimited)(next)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and for
// uploads still being parsed, then stops the rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if drainErr := s.uploads.WaitForDrain(ctx); drainErr != nil && err == nil {
		err = drainErr
	}
	s.Close()
	return err
}

// Close stops background goroutines without touching the listener.
func (s *Server) Close() {
	if s.requestLimit != nil {
		s.requestLimit.Stop()
	}
	if s.uploadLimit != nil {
		s.uploadLimit.Stop()
	}
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}
