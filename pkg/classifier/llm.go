package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/ports"
)

const classifySystem = "Eres un clasificador médico de emergencias. Respondes solo con un nombre de la lista o con el texto original."

const classifyPrompt = `Analiza el texto del usuario y:
1. Devuelve EXACTAMENTE uno de estos nombres de emergencia si hay coincidencia CLARA:
%s

2. Si el texto NO describe una emergencia médica o es ambiguo, devuelve el texto original tal cual.

Reglas:
- No agregues explicaciones.
- No modifiques el texto original si no es una emergencia.
- Usa solo los nombres de emergencia proporcionados.

Texto a clasificar: "%s"`

// LLM asks a language model to pick one name out of a closed set.
type LLM struct {
	completer ports.Completer
	names     []string
	allowed   map[string]bool
	logger    *slog.Logger
}

// LLMOption configures the LLM classifier.
type LLMOption func(*LLM)

// WithLogger sets the logger used to report backend failures.
func WithLogger(logger *slog.Logger) LLMOption {
	return func(l *LLM) {
		l.logger = logger
	}
}

// NewLLM creates a classifier restricted to names.
func NewLLM(completer ports.Completer, names []string, opts ...LLMOption) *LLM {
	l := &LLM{
		completer: completer,
		names:     append([]string(nil), names...),
		allowed:   make(map[string]bool, len(names)),
		logger:    logging.NewNop(),
	}
	for _, n := range names {
		l.allowed[n] = true
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Categorize returns exactly one allowed name, or text unchanged when the model
// answers anything else or fails. The prior turns go to the model as context.
func (l *LLM) Categorize(ctx context.Context, text string, history []domain.Turn) string {
	list := "- " + strings.Join(l.names, "\n- ")
	answer, err := l.completer.Complete(ctx, classifySystem, history, fmt.Sprintf(classifyPrompt, list, text))
	if err != nil {
		l.logger.Warn("LLM classification failed", "err", err)
		return text
	}

	answer = strings.Trim(strings.TrimSpace(answer), `"'`)
	if l.allowed[answer] {
		return answer
	}
	return text
}

// Classify implements ports.Classifier on top of Categorize.
func (l *LLM) Classify(ctx context.Context, text string, history []domain.Turn) (string, bool) {
	got := l.Categorize(ctx, text, history)
	if got == text && !l.allowed[text] {
		return "", false
	}
	return got, true
}

// Chain tries classifiers in order and returns the first match.
type Chain []ports.Classifier

// Classify implements ports.Classifier.
func (c Chain) Classify(ctx context.Context, text string, history []domain.Turn) (string, bool) {
	for _, cl := range c {
		if cl == nil {
			continue
		}
		if name, ok := cl.Classify(ctx, text, history); ok {
			return name, true
		}
	}
	return "", false
}
