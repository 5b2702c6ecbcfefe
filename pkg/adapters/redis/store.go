// Package redis holds the Redis-backed session state, conversational memory
// and distributed lock used when several replicas serve the same sessions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aretw0/firstaid/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "firstaid:"

// noExpiry is the index score of sessions stored without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.StateStore with one JSON string per session and a
// sorted-set index scored by each session's expiry deadline.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires sessions that have not been saved for ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix replaces the "firstaid:session:" key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithNow sets the clock used to score and prune the session index.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewClient opens a client and checks the server answers.
func NewClient(ctx context.Context, address, password string, db int) (*backend.Client, error) {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", address, err)
	}
	return rdb, nil
}

// NewFromClient creates a store on top of an open client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix + "session:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) sessionKey(id string) string { return s.prefix + id }

func (s *Store) indexKey() string { return s.prefix + "index" }

// deadline is the index score: the moment the session key expires.
func (s *Store) deadline() float64 {
	if s.ttl <= 0 {
		return noExpiry
	}
	return float64(s.now().Add(s.ttl).Unix())
}

// Save writes the session and refreshes its index entry in one transaction.
func (s *Store) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sessionID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Set(ctx, s.sessionKey(sessionID), payload, s.ttl)
		tx.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.deadline(), Member: sessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// Load returns domain.ErrSessionNotFound for a missing or expired session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	payload, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	session := &domain.Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	if session.Path == nil {
		session.Path = []string{}
	}
	return session, nil
}

// Delete removes the session and its index entry. Deleting an unknown
// session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Del(ctx, s.sessionKey(sessionID))
		tx.ZRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns the IDs of live sessions in ascending order. Index entries
// whose deadline has passed are pruned on the way.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)

	var live *backend.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now)
		live = tx.ZRange(ctx, s.indexKey(), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ids := live.Val()
	sort.Strings(ids)
	return ids, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
