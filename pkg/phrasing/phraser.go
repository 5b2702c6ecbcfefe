// Package phrasing rewrites raw graph payloads into calm conversational replies.
package phrasing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/ports"
)

// DefaultTimeout bounds a single phrasing call.
const DefaultTimeout = 15 * time.Second

// LLM phrases payloads through a Completer, falling back to fixed texts.
type LLM struct {
	completer ports.Completer
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures the LLM phraser.
type Option func(*LLM)

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(l *LLM) {
		l.timeout = d
	}
}

// WithLogger sets the logger for backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LLM) {
		l.logger = logger
	}
}

// New creates an LLM phraser.
func New(completer ports.Completer, opts ...Option) *LLM {
	l := &LLM{
		completer: completer,
		timeout:   DefaultTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Render implements ports.Phraser. It never fails.
func (l *LLM) Render(ctx context.Context, req domain.PhraseRequest) string {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	text, err := l.completer.Complete(ctx, system(req), req.History, prompt(req))
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if err != nil {
		l.logger.Warn("Phrasing failed, using fallback",
			"session_id", req.SessionID,
			"kind", req.Kind,
			"escalation", req.Escalation,
			"err", err,
		)
	}
	return Fallback(req)
}

// Verbatim returns payloads as they are. Terminal payloads get the escalation
// directive appended, so the override holds without a language model.
type Verbatim struct{}

// Render implements ports.Phraser.
func (Verbatim) Render(ctx context.Context, req domain.PhraseRequest) string {
	if req.Escalation {
		return req.Content + " " + EscalationDirective
	}
	return req.Content
}

// EscalationDirective is appended to terminal payloads by Verbatim.
const EscalationDirective = "Si la situación es grave, llame a una ambulancia al 160 de inmediato."
