package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/firstaid/internal/runtime"
	"github.com/aretw0/firstaid/pkg/adapters/memory"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/ports"
	"github.com/aretw0/firstaid/pkg/session"
	"github.com/aretw0/firstaid/pkg/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// recordingPhraser keeps every request and echoes the payload.
type recordingPhraser struct {
	mu   sync.Mutex
	reqs []domain.PhraseRequest
}

func (p *recordingPhraser) Render(_ context.Context, req domain.PhraseRequest) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return req.Content
}

func (p *recordingPhraser) last() domain.PhraseRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reqs[len(p.reqs)-1]
}

type classifierFunc func(ctx context.Context, text string, history []domain.Turn) (string, bool)

func (f classifierFunc) Classify(ctx context.Context, text string, history []domain.Turn) (string, bool) {
	return f(ctx, text, history)
}

type fixture struct {
	engine   *runtime.Engine
	sessions *session.Manager
	history  *memory.History
	clock    *supervisor.ManualClock
	timers   *supervisor.Timers
	phraser  *recordingPhraser
}

func newFixture(t *testing.T, opts ...runtime.Option) *fixture {
	t.Helper()
	f := &fixture{
		sessions: session.NewManager(memory.NewStore()),
		history:  memory.NewHistory(0),
		clock:    supervisor.NewManualClock(epoch),
		phraser:  &recordingPhraser{},
	}
	f.timers = supervisor.NewTimers(nil, supervisor.WithClock(f.clock))

	base := []runtime.Option{
		runtime.WithClock(f.clock),
		runtime.WithPhraser(f.phraser),
		runtime.WithHistory(f.history),
		runtime.WithScheduler(f.timers),
	}
	f.engine = runtime.NewEngine(memory.NewGraph(ports.ContractTree()), f.sessions, append(base, opts...)...)
	f.timers.SetExpirer(f.engine)
	return f
}

func (f *fixture) send(t *testing.T, id, text string) domain.Reply {
	t.Helper()
	reply, err := f.engine.Handle(context.Background(), id, text)
	require.NoError(t, err)
	return reply
}

func (f *fixture) state(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := f.sessions.Load(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestEngine_CutFlow(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "s1", "me corté un dedo")
	assert.Equal(t, domain.OutcomeQuestion, reply.Kind)
	assert.Equal(t, domain.StatusAwaitingAnswer, reply.Status)
	assert.Equal(t, "¿La herida sangra abundantemente?", reply.Text)

	s := f.state(t, "s1")
	assert.Equal(t, "Cortes y Raspaduras Menores", s.Emergency)
	assert.Equal(t, domain.Position{NodeID: "corte-q1", Kind: domain.PositionQuestion}, s.Position)
	assert.True(t, s.AwaitingAnswer)
	assert.True(t, f.timers.Pending("s1"))

	reply = f.send(t, "s1", "Sí")
	assert.Equal(t, domain.OutcomeStep, reply.Kind)
	assert.Equal(t, domain.StatusInStepFlow, reply.Status)
	assert.Equal(t, "Aplica presión firme.", reply.Text)
	assert.False(t, f.state(t, "s1").AwaitingAnswer)
	assert.False(t, f.timers.Pending("s1"), "step flow does not arm the timer")

	reply = f.send(t, "s1", "siguiente paso")
	assert.Equal(t, domain.OutcomeTerminal, reply.Kind)
	assert.True(t, reply.Terminal)
	assert.Equal(t, domain.StatusEnded, reply.Status)
	assert.True(t, f.phraser.last().Escalation)

	s = f.state(t, "s1")
	assert.Empty(t, s.Emergency)
	assert.Equal(t, domain.PositionEnd, s.Position.Kind)
	assert.Equal(t, []string{"corte-q1", "corte-s-presion"}, s.Path)
}

func TestEngine_NoBranchEndsWithEscalation(t *testing.T) {
	f := newFixture(t, runtime.WithClassifier(classifierFunc(func(context.Context, string, []domain.Turn) (string, bool) {
		return "Hemorragias", true
	})))

	f.send(t, "s1", "sale sangre a chorros")
	reply := f.send(t, "s1", "no")

	assert.Equal(t, domain.OutcomeTerminal, reply.Kind)
	assert.Equal(t, domain.StatusEnded, reply.Status)
	req := f.phraser.last()
	assert.True(t, req.Escalation)
	assert.Equal(t, domain.MsgNoNextStep, req.Content)
}

func TestEngine_EndedSessionClassifiesAgain(t *testing.T) {
	f := newFixture(t)
	f.send(t, "s1", "me corté")
	f.send(t, "s1", "si")
	f.send(t, "s1", "listo")
	require.Equal(t, domain.StatusEnded, f.state(t, "s1").Status())

	reply := f.send(t, "s1", "otra vez me corté")
	assert.Equal(t, domain.OutcomeQuestion, reply.Kind)
	assert.Equal(t, []string{"corte-q1"}, f.state(t, "s1").Path)
}

func TestEngine_Unrecognized(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "s1", "xyzzy")
	assert.Equal(t, domain.OutcomeClarify, reply.Kind)
	assert.Equal(t, domain.StatusAwaitingEmergency, reply.Status)
	assert.Equal(t, domain.MsgUnrecognized, reply.Text)
	assert.False(t, reply.Terminal)

	s := f.state(t, "s1")
	assert.Empty(t, s.Emergency)
	assert.Equal(t, domain.PositionNone, s.Position.Kind)
	assert.Equal(t, 0, f.timers.Len())
}

func TestEngine_ClassifierSeesRecentTurns(t *testing.T) {
	var seen [][]domain.Turn
	f := newFixture(t, runtime.WithClassifier(classifierFunc(func(_ context.Context, _ string, history []domain.Turn) (string, bool) {
		seen = append(seen, history)
		return "", false
	})))

	f.send(t, "s1", "estamos en la playa")
	f.send(t, "s1", "no respira bien")

	require.Len(t, seen, 2)
	assert.Empty(t, seen[0])
	require.Len(t, seen[1], 2)
	assert.Equal(t, domain.Turn{Role: domain.RoleUser, Content: "estamos en la playa"}, seen[1][0])
	assert.Equal(t, domain.RoleAssistant, seen[1][1].Role)
}

func TestEngine_AmbiguousAnswerKeepsState(t *testing.T) {
	f := newFixture(t)
	f.send(t, "s1", "me corté")
	before := f.state(t, "s1")

	f.clock.Advance(10 * time.Second)
	reply := f.send(t, "s1", "tal vez")
	assert.Equal(t, domain.OutcomeClarify, reply.Kind)
	assert.Equal(t, domain.MsgClarifyAnswer, reply.Text)
	assert.Equal(t, domain.StatusAwaitingAnswer, reply.Status)

	after := f.state(t, "s1")
	assert.Equal(t, before.Position, after.Position)
	assert.Equal(t, before.Path, after.Path)
	assert.True(t, after.AwaitingAnswer)
	assert.True(t, f.timers.Pending("s1"))
}

func TestEngine_AwaitingImpliesQuestion(t *testing.T) {
	f := newFixture(t)
	inputs := []string{"hola", "me corté", "quizás", "no", "sigue", "sigue", "ayuda", "me corté", "reiniciar", "me corté", "sí"}

	for _, in := range inputs {
		reply := f.send(t, "s1", in)
		s := f.state(t, "s1")
		if s.AwaitingAnswer {
			assert.Equal(t, domain.PositionQuestion, s.Position.Kind, "after %q", in)
			assert.Contains(t, []domain.OutcomeKind{domain.OutcomeQuestion, domain.OutcomeClarify}, reply.Kind, "after %q", in)
		}
		assert.Equal(t, s.Status(), reply.Status)
	}
}

func TestEngine_ResetIsIdempotent(t *testing.T) {
	setups := map[string][]string{
		"new":             nil,
		"awaiting answer": {"me corté"},
		"in step flow":    {"me corté", "no"},
		"ended":           {"me corté", "sí", "ok"},
		"unrecognized":    {"xyzzy"},
	}

	for name, msgs := range setups {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			for _, m := range msgs {
				f.send(t, "s1", m)
			}
			for i := 0; i < 2; i++ {
				reply := f.send(t, "s1", "Empezar")
				assert.Equal(t, domain.OutcomeWelcome, reply.Kind)
				assert.Equal(t, domain.StatusAwaitingEmergency, reply.Status)

				s := f.state(t, "s1")
				assert.Empty(t, s.Emergency)
				assert.False(t, s.AwaitingAnswer)
				assert.Empty(t, s.Path)
				assert.Equal(t, 0, f.timers.Len())
			}
		})
	}
}

func TestEngine_TerminalAlwaysEscalates(t *testing.T) {
	f := newFixture(t, runtime.WithClassifier(classifierFunc(func(_ context.Context, text string, _ []domain.Turn) (string, bool) {
		return "Desconocida", true
	})))

	reply := f.send(t, "s1", "algo raro")
	assert.Equal(t, domain.OutcomeTerminal, reply.Kind)
	assert.Equal(t, domain.StatusEnded, reply.Status)

	for _, req := range f.phraser.reqs {
		if req.Kind == domain.OutcomeTerminal || req.Kind == domain.OutcomeError {
			assert.True(t, req.Escalation)
		} else {
			assert.False(t, req.Escalation)
		}
	}
}

func TestEngine_Help(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "s1", "Ayuda")
	assert.Equal(t, domain.OutcomeHelp, reply.Kind)
	assert.Contains(t, reply.Text, domain.MsgHelpHeader)
	assert.Contains(t, reply.Text, "- Cortes y Raspaduras Menores")
	assert.Contains(t, reply.Text, "- Hemorragias")

	// Inside a flow "ayuda" is just an answer.
	f.send(t, "s1", "me corté")
	reply = f.send(t, "s1", "ayuda")
	assert.Equal(t, domain.OutcomeClarify, reply.Kind)
}

func TestEngine_RecordsHistory(t *testing.T) {
	f := newFixture(t)
	f.send(t, "s1", "me corté")
	f.send(t, "s1", "sí")

	turns, err := f.history.Recent(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, domain.Turn{Role: domain.RoleUser, Content: "me corté"}, turns[0])
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)

	// The phraser sees the prior exchange plus the current message.
	assert.Len(t, f.phraser.last().History, 3)
}

func TestEngine_TimerRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.send(t, "s1", "me corté") // t=0, timer due at t=60
	f.clock.Advance(56 * time.Second)
	f.send(t, "s1", "hmm") // clarify, still awaiting, timer re-armed for t=116

	f.clock.Advance(4 * time.Second) // t=60
	assert.Equal(t, domain.StatusAwaitingAnswer, f.state(t, "s1").Status())

	// An expiry that fired at t=60 anyway must observe the activity at t=56.
	reset, err := f.engine.Expire(ctx, "s1", supervisor.DefaultGrace)
	require.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, "Cortes y Raspaduras Menores", f.state(t, "s1").Emergency)
}

func TestEngine_IdleExpiry(t *testing.T) {
	f := newFixture(t)
	f.send(t, "s1", "me corté")

	f.clock.Advance(supervisor.DefaultDelay)

	s := f.state(t, "s1")
	assert.Equal(t, domain.StatusAwaitingEmergency, s.Status())
	assert.Empty(t, s.Emergency)
	assert.False(t, s.AwaitingAnswer)
	assert.Equal(t, epoch, s.LastActivity)

	turns, err := f.history.Recent(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns, "conversational memory is dropped with the state")

	// The next message starts over.
	reply := f.send(t, "s1", "sí")
	assert.Equal(t, domain.OutcomeClarify, reply.Kind)
	assert.Equal(t, domain.MsgUnrecognized, reply.Text)
}

func TestEngine_ExpireSkipsUnknownAndIdleSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reset, err := f.engine.Expire(ctx, "ghost", 0)
	require.NoError(t, err)
	assert.False(t, reset)
	_, err = f.sessions.Load(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	f.send(t, "s1", "xyzzy")
	f.clock.Advance(time.Hour)
	reset, err = f.engine.Expire(ctx, "s1", time.Minute)
	require.NoError(t, err)
	assert.False(t, reset)
}

func TestEngine_SweeperExpires(t *testing.T) {
	f := newFixture(t)
	f.timers.Stop()
	f.send(t, "s1", "me corté")
	f.send(t, "s2", "me corté")
	f.send(t, "s3", "me corté")
	f.send(t, "s3", "no")

	f.clock.Advance(30 * time.Second)
	f.send(t, "s2", "sí")
	f.clock.Advance(40 * time.Second)

	sweeper := supervisor.NewSweeper(f.sessions, f.engine, time.Minute, time.Minute, nil)
	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.state(t, "s1").Emergency)
	assert.Equal(t, "Cortes y Raspaduras Menores", f.state(t, "s2").Emergency)

	// A step flow is not waiting for an answer, however long the user reads.
	s3 := f.state(t, "s3")
	assert.Equal(t, domain.StatusInStepFlow, s3.Status())
	assert.Equal(t, "corte-s-lavar", s3.Position.NodeID)
	reply := f.send(t, "s3", "siguiente paso")
	assert.Equal(t, domain.OutcomeStep, reply.Kind)
	assert.Equal(t, "Cubre la herida.", reply.Text)
}

func TestEngine_ExpireLeavesStepFlowAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.send(t, "s1", "me corté")
	f.send(t, "s1", "no")
	f.clock.Advance(time.Hour)

	reset, err := f.engine.Expire(ctx, "s1", supervisor.DefaultGrace)
	require.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, domain.StatusInStepFlow, f.state(t, "s1").Status())

	turns, err := f.history.Recent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, turns, "memory survives while the flow does")
}

func TestEngine_ResetWordInsideMessage(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "s1", "tengo un corte, quiero comenzar a curarlo")
	assert.Equal(t, domain.OutcomeQuestion, reply.Kind)
	assert.Equal(t, "¿La herida sangra abundantemente?", reply.Text)

	reply = f.send(t, "s1", "sí, voy a comenzar a presionar")
	assert.Equal(t, domain.OutcomeStep, reply.Kind)
	assert.Equal(t, domain.StatusInStepFlow, reply.Status)
	assert.Equal(t, "Aplica presión firme.", reply.Text)
	assert.Equal(t, "Cortes y Raspaduras Menores", f.state(t, "s1").Emergency)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var mu sync.Mutex
	var events []domain.EventType
	record := func(typ domain.EventType) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, typ)
	}

	hooks := domain.LifecycleHooks{
		OnFlowStart: func(_ context.Context, e *domain.FlowEvent) {
			assert.Equal(t, "Cortes y Raspaduras Menores", e.Emergency)
			record(e.Type)
		},
		OnNodeEnter: func(_ context.Context, e *domain.FlowEvent) { record(e.Type) },
		OnFlowEnd: func(_ context.Context, e *domain.FlowEvent) {
			assert.Equal(t, "Cortes y Raspaduras Menores", e.Emergency)
			record(e.Type)
		},
		OnSession: func(_ context.Context, e *domain.SessionEvent) { record(e.Type) },
	}

	f := newFixture(t, runtime.WithLifecycleHooks(hooks))
	f.send(t, "s1", "xyzzy")
	f.send(t, "s1", "me corté")
	f.send(t, "s1", "quizás")
	f.send(t, "s1", "sí")
	f.send(t, "s1", "ok")
	f.send(t, "s1", "reiniciar")

	assert.Equal(t, []domain.EventType{
		domain.EventClassifyMiss,
		domain.EventFlowStart,
		domain.EventNodeEnter,
		domain.EventClarify,
		domain.EventNodeEnter,
		domain.EventFlowEnd,
		domain.EventReset,
	}, events)
}

type failingStore struct {
	*memory.Store
}

func (failingStore) Save(context.Context, string, *domain.Session) error {
	return errors.New("disk full")
}

func TestEngine_StoreFailure(t *testing.T) {
	clock := supervisor.NewManualClock(epoch)
	timers := supervisor.NewTimers(nil, supervisor.WithClock(clock))
	engine := runtime.NewEngine(
		memory.NewGraph(ports.ContractTree()),
		session.NewManager(failingStore{memory.NewStore()}),
		runtime.WithClock(clock),
		runtime.WithScheduler(timers),
	)

	_, err := engine.Handle(context.Background(), "s1", "me corté")
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 0, timers.Len(), "no timer survives a failed transaction")
}

func TestEngine_ConcurrentMessagesAreSerialized(t *testing.T) {
	f := newFixture(t)
	f.send(t, "s1", "me corté")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Handle(context.Background(), "s1", "sí")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// One "sí" consumed the question; the rest walked the step flow to its end
	// and then failed to classify.
	s := f.state(t, "s1")
	assert.False(t, s.AwaitingAnswer)
	assert.NotEqual(t, domain.StatusAwaitingAnswer, s.Status())
}
