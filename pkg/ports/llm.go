package ports

import (
	"context"

	"github.com/aretw0/firstaid/pkg/domain"
)

// Classifier maps a free-text description to an emergency name.
type Classifier interface {
	// Classify returns the emergency name and true, or false when the text
	// could not be classified. history holds the session's recent turns,
	// oldest first. Backend failures count as non-classification.
	Classify(ctx context.Context, text string, history []domain.Turn) (string, bool)
}

// Phraser rewrites a raw payload into a conversational reply.
// It never fails: implementations fall back to fixed texts.
type Phraser interface {
	Render(ctx context.Context, req domain.PhraseRequest) string
}

// Completer is the chat-completion capability of a language model backend.
type Completer interface {
	// Complete sends a system instruction, the prior turns and a user prompt,
	// and returns the model's text answer.
	Complete(ctx context.Context, system string, history []domain.Turn, prompt string) (string, error)
}
