// Package webhook exposes the HTTP surface of the charades server: the
// Twilio SMS and voice webhooks, a JSON test harness, and the operational
// endpoints (health probes and Prometheus metrics).
package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshSzep/charades/internal/game"
	"github.com/joshSzep/charades/internal/health"
	"github.com/joshSzep/charades/internal/observe"
)

// Server holds the webhook handlers and their dependencies.
type Server struct {
	orch      *game.Orchestrator
	metrics   *observe.Metrics
	health    *health.Handler
	publicURL string
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth sets the health handler mounted at /healthz and /readyz.
// When unset, a handler with no readiness checks is used.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithPublicURL sets the externally reachable base URL used to build
// action URLs in voice responses. Relative URLs are used when empty, which
// Twilio resolves against the webhook URL.
func WithPublicURL(u string) Option {
	return func(s *Server) { s.publicURL = u }
}

// New creates a webhook server around the game orchestrator.
func New(orch *game.Orchestrator, opts ...Option) *Server {
	s := &Server{orch: orch}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}
	return s
}

// Routes returns the fully wired HTTP handler: webhook and API routes
// behind the observability middleware, plus health probes and /metrics.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhooks/twilio/incoming", s.handleIncomingMessage)
	mux.HandleFunc("POST /webhooks/twilio/voice", s.handleIncomingVoice)
	mux.HandleFunc("POST /webhooks/twilio/status", s.handleMessageStatus)

	mux.HandleFunc("POST /api/commands", s.handleCommand)
	mux.HandleFunc("GET /api/hello", s.handleHello)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// errorResponse is the JSON error body for webhook failures.
type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message, Code: status})
}
