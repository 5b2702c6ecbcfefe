package memory

import (
	"context"
	"sync"

	"github.com/aretw0/firstaid/pkg/domain"
)

// History implements ports.HistoryStore in memory.
type History struct {
	mu    sync.Mutex
	turns map[string][]domain.Turn
	limit int
}

// NewHistory creates an in-memory conversational memory keeping at most
// limit turns per session (0 keeps everything).
func NewHistory(limit int) *History {
	return &History{
		turns: make(map[string][]domain.Turn),
		limit: limit,
	}
}

// Append adds turns to the session's memory, dropping the oldest past the limit.
func (h *History) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	all := append(h.turns[sessionID], turns...)
	if h.limit > 0 && len(all) > h.limit {
		all = append([]domain.Turn(nil), all[len(all)-h.limit:]...)
	}
	h.turns[sessionID] = all
	return nil
}

// Recent returns at most n of the latest turns, oldest first.
func (h *History) Recent(ctx context.Context, sessionID string, n int) ([]domain.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	all := h.turns[sessionID]
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]domain.Turn(nil), all...), nil
}

// Clear drops the session's memory.
func (h *History) Clear(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.turns, sessionID)
	return nil
}
