// Package supervisor resets sessions that stop answering.
//
// Timers keeps one cancellable deferred expiry per session; Sweeper is the
// alternative that periodically scans stored sessions. Both delegate the
// actual reset to an Expirer, which re-checks inactivity under the session
// lock so a message racing with the expiry always wins.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/firstaid/internal/logging"
)

const (
	// DefaultDelay is how long an unanswered question waits before expiring.
	DefaultDelay = 60 * time.Second
	// DefaultGrace is the minimum inactivity re-checked when the timer fires.
	DefaultGrace = 55 * time.Second
)

// Expirer resets a session when it has been inactive for at least idle.
// It reports whether a reset happened.
type Expirer interface {
	Expire(ctx context.Context, sessionID string, idle time.Duration) (bool, error)
}

// ExpirerFunc adapts a function to Expirer.
type ExpirerFunc func(ctx context.Context, sessionID string, idle time.Duration) (bool, error)

// Expire implements Expirer.
func (f ExpirerFunc) Expire(ctx context.Context, sessionID string, idle time.Duration) (bool, error) {
	return f(ctx, sessionID, idle)
}

type pending struct {
	timer Timer
}

// Timers is a registry of per-session idle timers.
// Schedule replaces any outstanding timer of the session; Cancel removes it.
type Timers struct {
	clock   Clock
	delay   time.Duration
	grace   time.Duration
	expirer Expirer
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*pending
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures Timers.
type Option func(*Timers)

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(t *Timers) {
		t.clock = c
	}
}

// WithDelay sets how long to wait before an expiry fires.
func WithDelay(d time.Duration) Option {
	return func(t *Timers) {
		t.delay = d
	}
}

// WithGrace sets the inactivity re-checked on fire.
func WithGrace(d time.Duration) Option {
	return func(t *Timers) {
		t.grace = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Timers) {
		t.logger = logger
	}
}

// NewTimers creates an empty registry. Expirer may be set later with SetExpirer,
// before the first Schedule.
func NewTimers(expirer Expirer, opts ...Option) *Timers {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Timers{
		clock:   RealClock{},
		delay:   DefaultDelay,
		grace:   DefaultGrace,
		expirer: expirer,
		logger:  logging.NewNop(),
		pending: make(map[string]*pending),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetExpirer wires the component that performs resets.
func (t *Timers) SetExpirer(e Expirer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expirer = e
}

// Schedule (re)arms the session's idle timer.
func (t *Timers) Schedule(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx.Err() != nil {
		return
	}
	if old, ok := t.pending[sessionID]; ok {
		old.timer.Stop()
	}
	p := &pending{}
	p.timer = t.clock.AfterFunc(t.delay, func() { t.fire(sessionID, p) })
	t.pending[sessionID] = p
}

// Cancel disarms the session's idle timer, if any.
func (t *Timers) Cancel(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.pending[sessionID]; ok {
		p.timer.Stop()
		delete(t.pending, sessionID)
	}
}

// Pending reports whether the session has an armed timer.
func (t *Timers) Pending(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[sessionID]
	return ok
}

// Len counts armed timers.
func (t *Timers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Stop disarms every timer. Later Schedule calls are ignored.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancel()
	for id, p := range t.pending {
		p.timer.Stop()
		delete(t.pending, id)
	}
}

func (t *Timers) fire(sessionID string, p *pending) {
	t.mu.Lock()
	// A replaced timer that could not be stopped in time is stale.
	if t.pending[sessionID] != p {
		t.mu.Unlock()
		return
	}
	delete(t.pending, sessionID)
	expirer := t.expirer
	ctx := t.ctx
	t.mu.Unlock()

	if expirer == nil || ctx.Err() != nil {
		return
	}
	reset, err := expirer.Expire(ctx, sessionID, t.grace)
	if err != nil {
		t.logger.Error("Idle expiry failed", "session_id", sessionID, "err", err)
		return
	}
	if reset {
		t.logger.Info("Session timed out", "session_id", sessionID)
	}
}
