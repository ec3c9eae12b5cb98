package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/config"
	"github.com/JakeFAU/content-progress/internal/contentstate"
	"github.com/JakeFAU/content-progress/internal/metrics"
	"github.com/JakeFAU/content-progress/internal/policy/ratelimit"
)

// Processor handles one decoded content state request.
type Processor interface {
	Process(ctx context.Context, req contentstate.Request) (contentstate.Result, error)
}

// ReadinessCheck reports whether a downstream dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// IDGenerator produces request ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Processor Processor
	IDs       IDGenerator
	Logger    *zap.Logger
	// Checks maps a dependency name to its readiness probe.
	Checks map[string]ReadinessCheck
}

// Server wires HTTP handlers to the content state ingestor.
type Server struct {
	router    chi.Router
	processor Processor
	checks    map[string]ReadinessCheck
	logger    *zap.Logger
	cfg       config.Config
}

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")
	s := &Server{
		processor: deps.Processor,
		checks:    deps.Checks,
		logger:    logger,
		cfg:       cfg,
	}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(deps.IDs))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(tracingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		if cfg.Limits.Enabled {
			r.Use(rateLimitMiddleware(ratelimit.New(ratelimit.Config{
				RPS:   cfg.Limits.RPS,
				Burst: cfg.Limits.Burst,
			})))
		}
		r.Post("/content/state", s.updateContentState)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "unsupported operation")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
