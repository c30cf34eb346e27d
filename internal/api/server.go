// Package api exposes the HTTP interface of the crawl gateway.
//
// Routes:
//   - POST /crawl, bearer-authenticated, crawls one URL.
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/auth"
	"github.com/JakeFAU/crawl-gateway/internal/crawler"
	"github.com/JakeFAU/crawl-gateway/internal/metrics"
)

// TokenValidator verifies a raw Authorization header value.
type TokenValidator interface {
	Validate(credential string) (auth.Claims, error)
}

// CrawlDispatcher runs a classified crawl.
type CrawlDispatcher interface {
	Dispatch(ctx context.Context, clientID string, req crawler.CrawlRequest, isDocument bool) (crawler.Content, error)
}

// Options tunes the router.
type Options struct {
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
}

// Server wires HTTP handlers to the validator, detector and dispatcher.
type Server struct {
	router     chi.Router
	tokens     TokenValidator
	classifier crawler.Classifier
	dispatcher CrawlDispatcher
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	tokens TokenValidator,
	classifier crawler.Classifier,
	dispatcher CrawlDispatcher,
	logger *zap.Logger,
	opts Options,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}

	s := &Server{
		tokens:     tokens,
		classifier: classifier,
		dispatcher: dispatcher,
		validate:   newRequestValidator(),
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.With(s.authMiddleware).Post("/crawl", s.crawl)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.tokens == nil || s.dispatcher == nil {
		s.writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

type errorBody struct {
	Error string `json:"error"`
}
