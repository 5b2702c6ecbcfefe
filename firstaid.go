package firstaid

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/internal/runtime"
	"github.com/aretw0/firstaid/pkg/adapters/memory"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/ports"
	"github.com/aretw0/firstaid/pkg/session"
	"github.com/aretw0/firstaid/pkg/supervisor"
	"github.com/aretw0/firstaid/pkg/tree"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

//go:embed data/emergencies.yaml
var bundledTree []byte

// DefaultTree parses the decision graph bundled with the module.
func DefaultTree() (*tree.Tree, error) {
	t, err := tree.Parse(bundledTree)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bundled tree: %w", err)
	}
	return t, nil
}

// Bot is the high-level entry point of the library.
// It wires the conversation engine to a graph, a session store and the idle timers.
type Bot struct {
	engine  *runtime.Engine
	timers  *supervisor.Timers
	graph   ports.GraphStore
	store   ports.StateStore
	locker  ports.DistributedLocker
	logger  *slog.Logger
	clock   supervisor.Clock
	hooks   domain.LifecycleHooks
	delay   time.Duration
	grace   time.Duration
	noTimer bool

	runtimeOpts []runtime.Option
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithGraph sets the decision graph. The default is the bundled tree in memory.
func WithGraph(g ports.GraphStore) Option {
	return func(b *Bot) {
		b.graph = g
	}
}

// WithStore sets the session store. The default keeps sessions in memory.
func WithStore(s ports.StateStore) Option {
	return func(b *Bot) {
		b.store = s
	}
}

// WithLocker serializes sessions across processes sharing a store.
func WithLocker(l ports.DistributedLocker) Option {
	return func(b *Bot) {
		b.locker = l
	}
}

// WithHistory sets the conversational memory.
func WithHistory(h ports.HistoryStore) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithHistory(h))
	}
}

// WithHistoryLimit caps the turns given to the phraser.
func WithHistoryLimit(n int) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithHistoryLimit(n))
	}
}

// WithClassifier replaces the keyword classifier.
func WithClassifier(c ports.Classifier) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithClassifier(c))
	}
}

// WithPhraser replaces the verbatim phraser.
func WithPhraser(p ports.Phraser) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithPhraser(p))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c supervisor.Clock) Option {
	return func(b *Bot) {
		b.clock = c
	}
}

// WithIdleTimeout sets how long after a question the session is reset, and
// how much inactivity the reset requires.
func WithIdleTimeout(delay, grace time.Duration) Option {
	return func(b *Bot) {
		b.delay = delay
		b.grace = grace
	}
}

// WithoutIdleTimers disables per-session timers. Run a supervisor.Sweeper
// against Expire instead when sessions live in a shared store.
func WithoutIdleTimers() Option {
	return func(b *Bot) {
		b.noTimer = true
	}
}

// New creates a Bot.
func New(opts ...Option) (*Bot, error) {
	b := &Bot{
		logger: logging.NewNop(),
		clock:  supervisor.RealClock{},
		delay:  supervisor.DefaultDelay,
		grace:  supervisor.DefaultGrace,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.graph == nil {
		t, err := DefaultTree()
		if err != nil {
			return nil, err
		}
		b.graph = memory.NewGraph(t)
	}
	if b.store == nil {
		b.store = memory.NewStore()
	}

	sessOpts := []session.Option{session.WithLogger(b.logger)}
	if b.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(b.locker))
	}
	sessions := session.NewManager(b.store, sessOpts...)

	rtOpts := []runtime.Option{
		runtime.WithLogger(b.logger),
		runtime.WithClock(b.clock),
		runtime.WithLifecycleHooks(b.hooks),
	}
	if !b.noTimer {
		b.timers = supervisor.NewTimers(nil,
			supervisor.WithClock(b.clock),
			supervisor.WithDelay(b.delay),
			supervisor.WithGrace(b.grace),
			supervisor.WithLogger(b.logger),
		)
		rtOpts = append(rtOpts, runtime.WithScheduler(b.timers))
	}
	rtOpts = append(rtOpts, b.runtimeOpts...)

	b.engine = runtime.NewEngine(b.graph, sessions, rtOpts...)
	if b.timers != nil {
		b.timers.SetExpirer(b.engine)
	}
	return b, nil
}

// Chat applies one user message to the session and returns the reply.
func (b *Bot) Chat(ctx context.Context, sessionID, text string) (domain.Reply, error) {
	return b.engine.Handle(ctx, sessionID, text)
}

// Handle is Chat under the name the transport adapters expect.
func (b *Bot) Handle(ctx context.Context, sessionID, text string) (domain.Reply, error) {
	return b.engine.Handle(ctx, sessionID, text)
}

// Emergencies lists the emergencies the graph covers.
func (b *Bot) Emergencies(ctx context.Context) []string {
	return b.engine.Emergencies(ctx)
}

// Expire resets the session if it has been idle for at least idle.
func (b *Bot) Expire(ctx context.Context, sessionID string, idle time.Duration) (bool, error) {
	return b.engine.Expire(ctx, sessionID, idle)
}

// Sessions exposes the session manager (inspection, deletion).
func (b *Bot) Sessions() *session.Manager {
	return b.engine.Sessions()
}

// History exposes the conversational memory.
func (b *Bot) History() ports.HistoryStore {
	return b.engine.History()
}

// Graph exposes the decision graph.
func (b *Bot) Graph() ports.GraphStore {
	return b.graph
}

// Close stops the idle timers. Pending expiries are dropped.
func (b *Bot) Close() error {
	if b.timers != nil {
		b.timers.Stop()
	}
	return nil
}
