// Package runtime is the conversation state machine.
//
// The Engine applies one inbound message to a session under the session's
// lock: it picks the transition from the session status, asks the
// classifier or the Resolver for an outcome, updates the state, phrases the
// outcome and re-arms the idle timer.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/pkg/adapters/memory"
	"github.com/aretw0/firstaid/pkg/classifier"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/phrasing"
	"github.com/aretw0/firstaid/pkg/ports"
	"github.com/aretw0/firstaid/pkg/session"
	"github.com/aretw0/firstaid/pkg/supervisor"
)

// DefaultHistoryLimit is how many past turns are handed to the phraser.
const DefaultHistoryLimit = 20

// Scheduler arms and disarms per-session idle timers.
// *supervisor.Timers satisfies it.
type Scheduler interface {
	Schedule(sessionID string)
	Cancel(sessionID string)
}

// Engine is the session state machine.
type Engine struct {
	sessions     *session.Manager
	graph        ports.GraphStore
	resolver     *Resolver
	classifier   ports.Classifier
	phraser      ports.Phraser
	history      ports.HistoryStore
	timers       Scheduler
	clock        supervisor.Clock
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	historyLimit int
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock injects the time source used for activity timestamps.
func WithClock(c supervisor.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c ports.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithPhraser replaces the default verbatim phraser.
func WithPhraser(p ports.Phraser) Option {
	return func(e *Engine) {
		e.phraser = p
	}
}

// WithHistory sets the conversational memory store.
func WithHistory(h ports.HistoryStore) Option {
	return func(e *Engine) {
		e.history = h
	}
}

// WithHistoryLimit caps the turns handed to the phraser.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.historyLimit = n
	}
}

// WithScheduler enables per-session idle timers.
// Without it, expiry is left to a supervisor.Sweeper or not done at all.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		e.timers = s
	}
}

// NewEngine creates an engine over a graph and a session manager.
func NewEngine(graph ports.GraphStore, sessions *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		sessions:     sessions,
		graph:        graph,
		clock:        supervisor.RealClock{},
		logger:       logging.NewNop(),
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = classifier.NewKeyword(nil)
	}
	if e.phraser == nil {
		e.phraser = phrasing.Verbatim{}
	}
	if e.history == nil {
		e.history = memory.NewHistory(e.historyLimit)
	}
	e.resolver = NewResolver(graph, e.logger)
	return e
}

// Sessions exposes the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// History exposes the conversational memory.
func (e *Engine) History() ports.HistoryStore {
	return e.history
}

// Handle applies one inbound message to a session and returns the phrased reply.
// Collaborator failures are folded into the reply; only state store
// failures are returned as errors.
func (e *Engine) Handle(ctx context.Context, sessionID, text string) (domain.Reply, error) {
	var reply domain.Reply

	err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, s *domain.Session) (bool, error) {
		// Any message disarms the pending expiry, whatever comes next.
		if e.timers != nil {
			e.timers.Cancel(sessionID)
		}
		s.Touch(e.clock.Now())

		out := e.transition(ctx, s, text)
		e.apply(ctx, s, out)

		reply = domain.Reply{
			Text:     e.phrase(ctx, sessionID, text, out),
			Kind:     out.Kind,
			Terminal: out.Terminal,
			Status:   s.Status(),
		}

		if s.AwaitingAnswer && e.timers != nil {
			e.timers.Schedule(sessionID)
		}
		return true, nil
	})
	if err != nil {
		if e.timers != nil {
			e.timers.Cancel(sessionID)
		}
		return domain.Reply{}, fmt.Errorf("failed to handle message for session %s: %w", sessionID, err)
	}

	e.logger.Debug("Message handled",
		"session_id", sessionID,
		"kind", string(reply.Kind),
		"status", string(reply.Status),
		"terminal", reply.Terminal)
	return reply, nil
}

// transition picks the action for the message from the session status.
func (e *Engine) transition(ctx context.Context, s *domain.Session, text string) domain.Outcome {
	if IsReset(text) {
		s.Clear()
		e.emitSession(ctx, domain.EventReset, s.ID, "command")
		return domain.Outcome{Kind: domain.OutcomeWelcome, Content: domain.MsgWelcome}
	}

	switch s.Status() {
	case domain.StatusAwaitingAnswer:
		return e.resolver.Resolve(ctx, e.request(s, text))

	case domain.StatusInStepFlow:
		if IsNextStep(text) {
			e.logger.Debug("Next step requested", "session_id", s.ID, "node_id", s.Position.NodeID)
		}
		return e.resolver.Resolve(ctx, e.request(s, text))

	default:
		if IsHelp(text) {
			return e.help(ctx)
		}
		return e.classify(ctx, s, text)
	}
}

func (e *Engine) request(s *domain.Session, text string) Request {
	return Request{
		Emergency:      s.Emergency,
		Position:       s.Position,
		Text:           text,
		AwaitingAnswer: s.AwaitingAnswer,
	}
}

func (e *Engine) classify(ctx context.Context, s *domain.Session, text string) domain.Outcome {
	history, err := e.history.Recent(ctx, s.ID, e.historyLimit)
	if err != nil {
		e.logger.Warn("Failed to read history", "session_id", s.ID, "err", err)
	}
	name, ok := e.classifier.Classify(ctx, text, history)
	s.Clear()
	if !ok {
		e.emitSession(ctx, domain.EventClassifyMiss, s.ID, "unrecognized")
		return domain.Outcome{Kind: domain.OutcomeClarify, Content: domain.MsgUnrecognized}
	}

	s.Emergency = name
	e.emitFlow(ctx, e.hooks.OnFlowStart, domain.EventFlowStart, s, "", "")
	return e.resolver.Resolve(ctx, Request{Emergency: name})
}

// Emergencies lists the emergencies the graph can guide through.
// It falls back to the built-in catalogue when the graph cannot answer.
func (e *Engine) Emergencies(ctx context.Context) []string {
	names, err := e.graph.Emergencies(ctx)
	if err != nil {
		e.logger.Warn("Failed to list emergencies", "err", err)
	}
	if err != nil || len(names) == 0 {
		return domain.Emergencies
	}
	return names
}

func (e *Engine) help(ctx context.Context) domain.Outcome {
	var b strings.Builder
	b.WriteString(domain.MsgHelpHeader)
	for _, n := range e.Emergencies(ctx) {
		b.WriteString("\n- ")
		b.WriteString(n)
	}
	return domain.Outcome{Kind: domain.OutcomeHelp, Content: b.String()}
}

// apply moves the session according to the outcome.
// AwaitingAnswer is set only when a question is surfaced.
func (e *Engine) apply(ctx context.Context, s *domain.Session, out domain.Outcome) {
	switch out.Kind {
	case domain.OutcomeQuestion:
		s.Position = domain.Position{NodeID: out.NodeID, Kind: domain.PositionQuestion}
		s.AwaitingAnswer = true
		s.Path = append(s.Path, out.NodeID)
		e.emitFlow(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, s, out.NodeID, out.Kind)

	case domain.OutcomeStep:
		s.Position = domain.Position{NodeID: out.NodeID, Kind: domain.PositionStep}
		s.AwaitingAnswer = false
		s.Path = append(s.Path, out.NodeID)
		e.emitFlow(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, s, out.NodeID, out.Kind)

	case domain.OutcomeTerminal, domain.OutcomeError:
		e.emitFlow(ctx, e.hooks.OnFlowEnd, domain.EventFlowEnd, s, s.Position.NodeID, out.Kind)
		s.End()

	case domain.OutcomeClarify:
		if s.AwaitingAnswer {
			e.emitSession(ctx, domain.EventClarify, s.ID, s.Position.NodeID)
		}
	}
}

// phrase records the exchange in the conversational memory and renders the outcome.
// Terminal outcomes always carry the escalation directive.
func (e *Engine) phrase(ctx context.Context, sessionID, text string, out domain.Outcome) string {
	if err := e.history.Append(ctx, sessionID, domain.Turn{Role: domain.RoleUser, Content: text}); err != nil {
		e.logger.Warn("Failed to record user turn", "session_id", sessionID, "err", err)
	}
	history, err := e.history.Recent(ctx, sessionID, e.historyLimit)
	if err != nil {
		e.logger.Warn("Failed to read history", "session_id", sessionID, "err", err)
	}

	reply := e.phraser.Render(ctx, domain.PhraseRequest{
		SessionID:  sessionID,
		Kind:       out.Kind,
		Content:    out.Content,
		Escalation: out.Terminal,
		History:    history,
	})

	if err := e.history.Append(ctx, sessionID, domain.Turn{Role: domain.RoleAssistant, Content: reply}); err != nil {
		e.logger.Warn("Failed to record reply", "session_id", sessionID, "err", err)
	}
	return reply
}

// Expire resets a session left waiting for an answer once it has been
// inactive for at least idle. Sessions in any other state are left alone.
// It runs under the session lock, so a message that arrived after the
// expiry was scheduled always wins. It reports whether a reset happened.
func (e *Engine) Expire(ctx context.Context, sessionID string, idle time.Duration) (bool, error) {
	var reset bool

	err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, s *domain.Session) (bool, error) {
		if !s.AwaitingAnswer {
			return false, nil
		}
		if e.clock.Now().Sub(s.LastActivity) < idle {
			return false, nil
		}

		if err := e.history.Clear(ctx, sessionID); err != nil {
			e.logger.Warn("Failed to drop history", "session_id", sessionID, "err", err)
		}
		s.Clear()
		reset = true
		e.emitSession(ctx, domain.EventTimeout, sessionID, "idle")
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to expire session %s: %w", sessionID, err)
	}
	return reset, nil
}

func (e *Engine) emitFlow(ctx context.Context, hook func(context.Context, *domain.FlowEvent), typ domain.EventType, s *domain.Session, nodeID string, kind domain.OutcomeKind) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.FlowEvent{
		EventBase: domain.EventBase{
			Timestamp: e.clock.Now(),
			Type:      typ,
			SessionID: s.ID,
		},
		Emergency: s.Emergency,
		NodeID:    nodeID,
		Kind:      kind,
	})
}

func (e *Engine) emitSession(ctx context.Context, typ domain.EventType, sessionID, reason string) {
	if e.hooks.OnSession == nil {
		return
	}
	e.hooks.OnSession(ctx, &domain.SessionEvent{
		EventBase: domain.EventBase{
			Timestamp: e.clock.Now(),
			Type:      typ,
			SessionID: sessionID,
		},
		Reason: reason,
	})
}
