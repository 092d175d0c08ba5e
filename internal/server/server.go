// Package server provides the HTTP REST API for the recruiter agent.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/recruiter-agent/internal/agents"
	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/metrics"
	"github.com/jonathan/recruiter-agent/internal/server/middleware"
	"github.com/jonathan/recruiter-agent/internal/server/ratelimit"
)

const (
	defaultInitialCount    = 25
	defaultSourceMoreCount = 15
	defaultKeepAlive       = 120 * time.Second
)

// devOrigins are always allowed to call the API from a browser
var devOrigins = []string{"http://localhost:5173", "http://localhost:5174", "http://localhost:3000"}

// JobRunner schedules detached pipeline runs
type JobRunner interface {
	Submit(jobID uuid.UUID, total int) (uuid.UUID, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	router      chi.Router
	store       db.Store
	runner      JobRunner
	events      *events.Broadcaster
	pitchWriter agents.PitchWriter
	mailer      agents.Mailer
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Collector
	logger      zerolog.Logger
	validator   *validator.Validate
	cfg         Config

	// streams is cancelled on shutdown to end open event streams
	streams     context.Context
	stopStreams context.CancelFunc
}

// Config holds server configuration
type Config struct {
	Port            int
	FrontendURL     string
	InitialCount    int
	SourceMoreCount int
	KeepAlive       time.Duration
}

// Deps are the collaborators the handlers call into.
// RateLimiter defaults to one built from the environment and Metrics may be nil.
type Deps struct {
	Store       db.Store
	Runner      JobRunner
	Events      *events.Broadcaster
	PitchWriter agents.PitchWriter
	Mailer      agents.Mailer
	RateLimiter *ratelimit.Limiter
	Metrics     *metrics.Collector
	Logger      zerolog.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("server: store is required")
	case deps.Runner == nil:
		return nil, errors.New("server: runner is required")
	case deps.Events == nil:
		return nil, errors.New("server: event broadcaster is required")
	case deps.PitchWriter == nil:
		return nil, errors.New("server: pitch writer is required")
	case deps.Mailer == nil:
		return nil, errors.New("server: mailer is required")
	}

	if cfg.InitialCount <= 0 {
		cfg.InitialCount = defaultInitialCount
	}
	if cfg.SourceMoreCount <= 0 {
		cfg.SourceMoreCount = defaultSourceMoreCount
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}

	s := &Server{
		store:       deps.Store,
		runner:      deps.Runner,
		events:      deps.Events,
		pitchWriter: deps.PitchWriter,
		mailer:      deps.Mailer,
		rateLimiter: deps.RateLimiter,
		metrics:     deps.Metrics,
		logger:      deps.Logger.With().Str("component", "http").Logger(),
		validator:   validator.New(),
		cfg:         cfg,
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// The event stream clears its own deadline
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// routes builds the chi router with middleware and every API endpoint
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.Logger(s.logger, s.observeRequest),
		chimw.Recoverer,
		middleware.CORS(allowedOrigins(s.cfg.FrontendURL)),
	)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Admission endpoints start pipeline runs and are rate limited per client.
	// Job creation checks its quota only once the body is valid.
	r.Post("/jobs", s.handleCreateJob)
	r.With(s.withRateLimit(ratelimit.ActionSourceMore)).Post("/jobs/{id}/source-more", s.handleSourceMore)

	r.Get("/jobs/{id}", s.handleGetJob)
	r.Get("/jobs/{id}/pipeline/events", s.handlePipelineEvents)
	r.Get("/jobs/{id}/candidates", s.handleNextCandidate)
	r.Get("/jobs/{id}/candidates/by-status/{status}", s.handleCandidatesByStatus)
	r.Get("/jobs/{id}/stats", s.handleStats)

	r.Put("/candidates/{id}/accept", s.handleAcceptCandidate)
	r.Put("/candidates/{id}/reject", s.handleRejectCandidate)

	r.Post("/outreach/send", s.handleSendOutreach)

	return r
}

// allowedOrigins returns the local development origins plus the configured frontend
func allowedOrigins(frontendURL string) []string {
	origins := append([]string(nil), devOrigins...)
	if u := strings.TrimRight(strings.TrimSpace(frontendURL), "/"); u != "" {
		origins = append(origins, u)
	}
	return origins
}

// Handler returns the routed HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves requests until ctx is cancelled, then shuts the listener down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown ends open event streams, then stops the listener and the rate limiter cleanup goroutine.
// Streams never end on their own while a run is idle, so they are closed before draining connections.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	s.stopStreams()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

// observeRequest feeds completed requests into the metrics collector
func (s *Server) observeRequest(method, route string, status int, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveRequest(method, route, status, d)
	}
}

// withRateLimit counts each request against the limit for action
func (s *Server) withRateLimit(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.allow(w, r, action) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// allow counts the request against the limit for action. When the limit is exhausted it
// writes the 429 response and returns false.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, action string) bool {
	clientID := s.extractClientID(r)
	allowed, info := s.rateLimiter.Allow(action, clientID)

	s.setRateLimitHeaders(w, info)
	if !allowed {
		s.rateLimitResponse(w, action, clientID, info)
	}
	return allowed
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// handleError maps err to a status code and writes it. Server-side failures are logged
// and their detail withheld from the client.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("request failed")
		s.errorResponse(w, status, http.StatusText(status))
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags
func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// pathUUID parses the named URL parameter as a UUID
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

// extractClientID extracts the client identifier from the request.
// RealIP has already replaced RemoteAddr with the forwarded address when one was sent.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP leaves a bare address without a port
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, action, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		// round up so clients never retry inside the window
		seconds := int((info.RetryAfter + time.Second - 1) / time.Second)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.logger.Warn().
		Str("action", action).
		Str("client", clientID).
		Int("limit", info.Limit).
		Time("reset_at", info.ResetTime).
		Msg("rate limit exceeded")
	if s.metrics != nil {
		s.metrics.RateLimited(action)
	}

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
