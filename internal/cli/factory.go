package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/aretw0/firstaid"
	"github.com/aretw0/firstaid/internal/config"
	"github.com/aretw0/firstaid/pkg/adapters/llm"
	loamAdapter "github.com/aretw0/firstaid/pkg/adapters/loam"
	"github.com/aretw0/firstaid/pkg/adapters/memory"
	"github.com/aretw0/firstaid/pkg/adapters/neo4j"
	"github.com/aretw0/firstaid/pkg/adapters/redis"
	"github.com/aretw0/firstaid/pkg/adapters/sqlite"
	"github.com/aretw0/firstaid/pkg/classifier"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/observability"
	"github.com/aretw0/firstaid/pkg/persistence/middleware"
	"github.com/aretw0/firstaid/pkg/phrasing"
	"github.com/aretw0/firstaid/pkg/ports"
	"github.com/aretw0/firstaid/pkg/supervisor"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is a fully wired bot plus the resources it owns.
type App struct {
	Bot      *firstaid.Bot
	Config   *config.Config
	Registry *prometheus.Registry
	Keyword  *classifier.Keyword
	Probe    func(context.Context) error

	logger  *slog.Logger
	sweeper *supervisor.Sweeper
	closers []func() error
}

// Build opens the configured backends and creates the bot.
// Graph connectivity is checked here; a graph that cannot answer is fatal.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	graph, probe, closeGraph, err := OpenGraph(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeGraph)
	app.Probe = probe
	if err := probe(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("graph backend %s is unreachable: %w", cfg.GraphBackend, err)
	}

	store, locker, history, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeStore)
	store, history, err = protect(cfg, store, history)
	if err != nil {
		app.Close()
		return nil, err
	}

	table, err := loadRules(cfg.RulesPath)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Keyword = classifier.NewKeyword(table)

	metrics := observability.NewMetrics(app.Registry)
	opts := []firstaid.Option{
		firstaid.WithGraph(graph),
		firstaid.WithStore(store),
		firstaid.WithHistory(history),
		firstaid.WithHistoryLimit(cfg.HistoryLimit),
		firstaid.WithLogger(logger),
		firstaid.WithLifecycleHooks(observability.Merge(observability.LogHooks(logger), metrics.Hooks())),
		firstaid.WithIdleTimeout(cfg.IdleDelay, cfg.IdleGrace),
	}
	if locker != nil {
		opts = append(opts, firstaid.WithLocker(locker))
	}
	if cfg.IdleMode != config.IdleTimer {
		opts = append(opts, firstaid.WithoutIdleTimers())
	}

	var cls ports.Classifier = app.Keyword
	if cfg.LLMEnabled() {
		completer, err := NewCompleter(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		guarded := phrasing.NewBreaker(completer, phrasing.DefaultBreakerConfig(), logger)
		opts = append(opts, firstaid.WithPhraser(phrasing.New(guarded,
			phrasing.WithTimeout(cfg.LLMTimeout),
			phrasing.WithLogger(logger),
		)))
		if cfg.LLMClassify {
			names := emergencyNames(ctx, graph, logger)
			cls = classifier.Chain{app.Keyword, classifier.NewLLM(guarded, names, classifier.WithLogger(logger))}
		}
	}
	opts = append(opts, firstaid.WithClassifier(cls))

	bot, err := firstaid.New(opts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Bot = bot

	if cfg.IdleMode == config.IdleSweep {
		app.sweeper = supervisor.NewSweeper(bot.Sessions(), bot, cfg.SweepInterval, cfg.IdleGrace, logger)
	}
	return app, nil
}

// Start launches the background work: the idle sweeper and the rules watcher.
// Both stop when ctx is done.
func (a *App) Start(ctx context.Context) error {
	if a.sweeper != nil {
		go func() {
			if err := a.sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("Idle sweeper stopped", "err", err)
			}
		}()
	}
	if a.Config.RulesPath != "" {
		if err := classifier.Watch(ctx, a.Config.RulesPath, a.Keyword, a.logger); err != nil {
			return fmt.Errorf("failed to watch rules: %w", err)
		}
	}
	return nil
}

// Close releases every backend, in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	if a.Bot != nil {
		errs = append(errs, a.Bot.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenGraph opens the configured decision graph.
func OpenGraph(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.GraphStore, func(context.Context) error, func() error, error) {
	noop := func() error { return nil }
	alive := func(context.Context) error { return nil }

	switch cfg.GraphBackend {
	case config.GraphMemory:
		t, err := loadTree(cfg.TreePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("Decision graph loaded", "backend", cfg.GraphBackend, "emergencies", len(t.Emergencies))
		return memory.NewGraph(t), alive, noop, nil

	case config.GraphLoam:
		loader, err := loamAdapter.Open(cfg.LoamPath)
		if err != nil {
			return nil, nil, nil, err
		}
		t, err := loader.Tree(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := checkTree(cfg.LoamPath, t); err != nil {
			return nil, nil, nil, err
		}
		logger.Info("Decision graph loaded", "backend", cfg.GraphBackend, "emergencies", len(t.Emergencies))
		return memory.NewGraph(t), alive, noop, nil

	case config.GraphSQLite:
		g, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return g, g.Ping, g.Close, nil

	case config.GraphNeo4j:
		g, err := neo4j.Open(ctx, neo4j.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return g, g.Ping, g.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: graph %q", domain.ErrUnknownBackend, cfg.GraphBackend)
}

// OpenStore opens the session store. The locker is nil for in-process stores.
func OpenStore(ctx context.Context, cfg *config.Config) (ports.StateStore, ports.DistributedLocker, ports.HistoryStore, func() error, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return memory.NewStore(), nil, memory.NewHistory(cfg.HistoryLimit), func() error { return nil }, nil

	case config.StoreRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		store := redis.NewFromClient(client, redis.WithTTL(cfg.SessionTTL))
		return store,
			redis.NewLocker(client, ""),
			redis.NewHistory(client, cfg.HistoryLimit, cfg.SessionTTL),
			store.Close,
			nil
	}
	return nil, nil, nil, nil, fmt.Errorf("%w: store %q", domain.ErrUnknownBackend, cfg.StoreBackend)
}

// protect wraps the stores with PII redaction and encryption at rest, as configured.
// Redaction runs first so that only masked text is encrypted.
func protect(cfg *config.Config, store ports.StateStore, history ports.HistoryStore) (ports.StateStore, ports.HistoryStore, error) {
	var historyMws []middleware.HistoryMiddleware
	if cfg.RedactPII {
		patterns := cfg.PIIPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
			}
		}
		historyMws = append(historyMws, middleware.NewPIIMiddleware(patterns))
	}

	if cfg.SessionKey != "" {
		active, err := middleware.DecodeKey(cfg.SessionKey)
		if err != nil {
			return nil, nil, fmt.Errorf("SESSION_KEY: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.SessionFallbackKeys {
			key, err := middleware.DecodeKey(k)
			if err != nil {
				return nil, nil, fmt.Errorf("SESSION_FALLBACK_KEYS: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		store = middleware.NewEncryptionMiddleware(enc)(store)
		historyMws = append(historyMws, middleware.NewHistoryEncryption(enc))
	}

	return store, middleware.ChainHistory(history, historyMws...), nil
}

// NewCompleter creates the language model client for the configured provider.
func NewCompleter(ctx context.Context, cfg *config.Config) (ports.Completer, error) {
	lc := llm.Config{
		APIKey:  cfg.LLMAPIKey(),
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}
	switch cfg.LLMProvider {
	case config.LLMGemini:
		if lc.BaseURL == "" {
			lc.BaseURL = llm.GeminiBaseURL
		}
	case config.LLMOpenAI:
		if lc.Model == "" {
			lc.Model = "gpt-4o-mini"
		}
	default:
		return nil, fmt.Errorf("%w: llm provider %q", domain.ErrUnknownBackend, cfg.LLMProvider)
	}

	if cfg.LLMClient == "openai" {
		return llm.NewOpenAI(lc), nil
	}
	return llm.NewEino(ctx, lc)
}

// LoadTree returns the decision tree behind the configured graph.
// Only the memory and loam backends keep the tree in a readable form.
func LoadTree(ctx context.Context, cfg *config.Config) (*tree.Tree, error) {
	switch cfg.GraphBackend {
	case config.GraphMemory:
		return loadTree(cfg.TreePath)
	case config.GraphLoam:
		loader, err := loamAdapter.Open(cfg.LoamPath)
		if err != nil {
			return nil, err
		}
		return loader.Tree(ctx)
	}
	return nil, fmt.Errorf("%w: graph %q cannot be exported as a tree", domain.ErrUnknownBackend, cfg.GraphBackend)
}

func loadTree(path string) (*tree.Tree, error) {
	if path == "" {
		return firstaid.DefaultTree()
	}
	t, err := tree.Load(path)
	if err != nil {
		return nil, err
	}
	if err := checkTree(path, t); err != nil {
		return nil, err
	}
	return t, nil
}

func checkTree(source string, t *tree.Tree) error {
	for _, issue := range tree.Validate(t) {
		if issue.Severity == tree.SeverityError {
			return fmt.Errorf("tree %s has errors: %v", source, issue)
		}
	}
	return nil
}

func loadRules(path string) (*classifier.RuleTable, error) {
	if path == "" {
		return classifier.MustDefaultTable(), nil
	}
	return classifier.LoadRules(path)
}

func emergencyNames(ctx context.Context, graph ports.GraphStore, logger *slog.Logger) []string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	names, err := graph.Emergencies(ctx)
	if err != nil || len(names) == 0 {
		logger.Warn("Using built-in emergency names for the language model", "err", err)
		return domain.Emergencies
	}
	return names
}
