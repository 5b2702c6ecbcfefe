package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/firstaid/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// History implements ports.HistoryStore with one Redis list per session.
type History struct {
	client *backend.Client
	prefix string
	limit  int
	ttl    time.Duration
}

// NewHistory keeps at most limit turns per session (0 keeps everything).
// A non-zero ttl expires idle memories on the server side as well.
func NewHistory(client *backend.Client, limit int, ttl time.Duration) *History {
	return &History{
		client: client,
		prefix: DefaultPrefix + "conversation:",
		limit:  limit,
		ttl:    ttl,
	}
}

func (h *History) key(sessionID string) string {
	return h.prefix + sessionID
}

// Append pushes turns at the tail of the session's list.
func (h *History) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, data)
	}

	key := h.key(sessionID)
	pipe := h.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if h.limit > 0 {
		pipe.LTrim(ctx, key, int64(-h.limit), -1)
	}
	if h.ttl > 0 {
		pipe.Expire(ctx, key, h.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Recent returns at most n of the latest turns, oldest first.
func (h *History) Recent(ctx context.Context, sessionID string, n int) ([]domain.Turn, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}

	raw, err := h.client.LRange(ctx, h.key(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]domain.Turn, 0, len(raw))
	for _, r := range raw {
		var t domain.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear drops the session's memory.
func (h *History) Clear(ctx context.Context, sessionID string) error {
	if err := h.client.Del(ctx, h.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
