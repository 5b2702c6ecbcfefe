// Package http exposes the conversation engine over a small JSON API.
//
//	POST /chat         {"text": "...", "session_id": "..."} -> {"response": "..."}
//	GET  /emergencies  list of emergencies the bot can guide through
//	GET  /health       liveness, plus graph connectivity when a probe is set
//	GET  /metrics      Prometheus exposition, when a gatherer is set
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/input"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the part of the conversation engine the API needs.
type Engine interface {
	Handle(ctx context.Context, sessionID, text string) (domain.Reply, error)
	Emergencies(ctx context.Context) []string
}

// ChatRequest is the inbound message.
type ChatRequest struct {
	Text      string `json:"text" validate:"required,max=4096"`
	SessionID string `json:"session_id" validate:"required,max=128,printascii"`
}

// ChatResponse is the bot reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// Server holds the handlers.
type Server struct {
	Engine    Engine
	sanitizer input.Sanitizer
	validate  *validator.Validate
	gatherer  prometheus.Gatherer
	probe     func(context.Context) error
	origins   []string
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSanitizer overrides the default input policy.
func WithSanitizer(san input.Sanitizer) Option {
	return func(s *Server) {
		s.sanitizer = san
	}
}

// WithMetrics serves the gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithHealthProbe makes /health report the probe's result.
func WithHealthProbe(probe func(context.Context) error) Option {
	return func(s *Server) {
		s.probe = probe
	}
}

// WithAllowedOrigins restricts CORS. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates the server.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:   engine,
		validate: validator.New(),
		origins:  []string{"*"},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Post("/chat", s.Chat)
	r.Get("/emergencies", s.GetEmergencies)
	r.Get("/health", s.GetHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Chat handles the POST /chat request.
// Once the request is valid the answer is always 200: a failing session
// store still gets the caller an escalation text.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Chat: Invalid request body", "err", err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", validationMessage(err)), http.StatusBadRequest)
		s.logger.Warn("Chat: Validation failed", "err", err)
		return
	}

	text, err := s.sanitizer.Sanitize(body.Text)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.logger.Warn("Chat: Input rejected", "err", err, "size", len(body.Text))
		return
	}

	resp := ChatResponse{}
	reply, err := s.Engine.Handle(r.Context(), body.SessionID, text)
	if err != nil {
		s.logger.Error("Chat failed", "session_id", body.SessionID, "err", err)
		resp.Response = domain.MsgEscalationFallback
	} else {
		resp.Response = reply.Text
	}

	writeJSON(w, s.logger, resp)
}

// GetEmergencies handles the GET /emergencies request.
func (s *Server) GetEmergencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string][]string{"emergencies": s.Engine.Emergencies(r.Context())})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.probe != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.probe(ctx); err != nil {
			s.logger.Warn("Health probe failed", "err", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
