// Package api serves the AI helper proxy, the wizard session API and the
// operational endpoints.
package api

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assistance-portal/internal/ai"
	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/form/locale"
	"assistance-portal/internal/form/wizard"
)

const defaultMaxBodyBytes = 64 << 10

// Config holds the static settings of the HTTP surface.
type Config struct {
	ServiceName     string
	Version         string
	DefaultLanguage string
	MaxBodyBytes    int64
}

// Deps are the collaborators served by the API. AI and Sessions may be nil,
// in which case their routes are not mounted.
type Deps struct {
	AI        *ai.Service
	Sessions  *wizard.Registry
	RateLimit func(http.Handler) http.Handler
	Checks    map[string]Check
	Logger    logger.Logger
}

type Server struct {
	router   chi.Router
	cfg      Config
	ai       *ai.Service
	sessions *wizard.Registry
	limit    func(http.Handler) http.Handler
	checks   map[string]Check
	logger   logger.Logger
}

func NewServer(cfg Config, deps Deps) *Server {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "assistance-portal"
	}
	if cfg.DefaultLanguage != locale.Arabic {
		cfg.DefaultLanguage = locale.English
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	limit := deps.RateLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		ai:       deps.AI,
		sessions: deps.Sessions,
		limit:    limit,
		checks:   deps.Checks,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	if s.ai != nil {
		s.router.Route("/api/ai", func(r chi.Router) {
			r.Get("/health", s.handleAIHealth)
			r.With(s.limit).Post("/rephrase", s.handleRephrase)
			r.With(s.limit).Post("/translate", s.handleTranslate)
		})
	}

	if s.sessions != nil {
		s.router.Route("/api/wizard/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDiscardSession)
				r.Put("/fields", s.handleSetFields)
				r.Post("/next", s.handleNext)
				r.Post("/previous", s.handlePrevious)
				r.Post("/goto", s.handleGoto)
				r.Post("/cancel", s.handleCancel)
				r.Get("/review", s.handleReview)
				r.With(s.limit).Post("/name-sync", s.handleNameSync)
			})
		})
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"remote":     r.RemoteAddr,
			"requestId":  middleware.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request", fields)
			return
		}
		s.logger.Debug("request", fields)
	})
}
