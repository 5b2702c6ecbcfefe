package ports

import (
	"context"

	"github.com/aretw0/firstaid/pkg/domain"
)

// StateStore defines the interface for persisting session state.
// Sessions are reset in place by the engine; Delete is only used by operators.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.Session) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}

// HistoryStore keeps the conversational memory of each session.
// It shares the session lifecycle: the idle supervisor clears it on expiry.
type HistoryStore interface {
	// Append adds turns at the end of the session's memory.
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error

	// Recent returns at most n of the latest turns, oldest first. n <= 0 means all.
	Recent(ctx context.Context, sessionID string, n int) ([]domain.Turn, error)

	// Clear drops the session's memory.
	Clear(ctx context.Context, sessionID string) error
}
