package runtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/ports"
)

// Request is the input of a traversal query.
type Request struct {
	Emergency      string
	Position       domain.Position
	Text           string
	AwaitingAnswer bool
}

// Resolver picks the next node of a flow. It only reads the graph.
type Resolver struct {
	graph  ports.GraphStore
	logger *slog.Logger
}

// NewResolver creates a resolver over the given graph.
func NewResolver(graph ports.GraphStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{graph: graph, logger: logger}
}

// Resolve returns exactly one outcome for the request:
//   - no position: the emergency's entry question
//   - awaiting an answer on a question: the YES or NO branch step, or a clarify prompt
//   - on a step: the step that follows it
//
// Any other combination is an invalid state and yields a terminal error.
func (r *Resolver) Resolve(ctx context.Context, req Request) domain.Outcome {
	switch {
	case req.Emergency != "" && req.Position.Kind == domain.PositionNone:
		return r.entry(ctx, req.Emergency)
	case req.AwaitingAnswer && req.Position.Kind == domain.PositionQuestion:
		return r.answer(ctx, req.Position.NodeID, req.Text)
	case !req.AwaitingAnswer && req.Position.Kind == domain.PositionStep:
		return r.continuation(ctx, req.Position.NodeID)
	default:
		r.logger.Warn("Invalid flow state",
			"emergency", req.Emergency,
			"node_id", req.Position.NodeID,
			"position", string(req.Position.Kind),
			"awaiting", req.AwaitingAnswer)
		return flowError()
	}
}

func (r *Resolver) entry(ctx context.Context, emergency string) domain.Outcome {
	node, err := r.graph.FindEntryQuestion(ctx, emergency)
	if err != nil {
		return r.miss(err, "entry", emergency, domain.MsgNoEvaluation)
	}
	return domain.Outcome{Kind: domain.OutcomeQuestion, Content: node.Content, NodeID: node.ID}
}

func (r *Resolver) answer(ctx context.Context, questionID, text string) domain.Outcome {
	branch, ok := DetectAnswer(text)
	if !ok {
		return domain.Outcome{Kind: domain.OutcomeClarify, Content: domain.MsgClarifyAnswer, NodeID: questionID}
	}

	node, err := r.graph.FindBranchStep(ctx, questionID, branch)
	if err != nil {
		return r.miss(err, "branch", questionID, domain.MsgNoNextStep)
	}
	return step(node)
}

func (r *Resolver) continuation(ctx context.Context, stepID string) domain.Outcome {
	node, err := r.graph.FindNextStep(ctx, stepID)
	if err != nil {
		return r.miss(err, "next", stepID, domain.MsgEndOfBranch)
	}
	if node.Empty() {
		return terminal(domain.MsgEndOfBranch)
	}
	return step(node)
}

// miss turns a graph miss into a terminal outcome. Store failures are logged
// and surface as the generic error payload.
func (r *Resolver) miss(err error, query, key, payload string) domain.Outcome {
	if errors.Is(err, domain.ErrNodeNotFound) {
		r.logger.Debug("Graph miss", "query", query, "key", key)
		return terminal(payload)
	}
	r.logger.Error("Graph query failed", "query", query, "key", key, "err", err)
	return flowError()
}

func step(node domain.Node) domain.Outcome {
	return domain.Outcome{Kind: domain.OutcomeStep, Content: node.Content, NodeID: node.ID}
}

func terminal(payload string) domain.Outcome {
	return domain.Outcome{Kind: domain.OutcomeTerminal, Content: payload, Terminal: true}
}

func flowError() domain.Outcome {
	return domain.Outcome{Kind: domain.OutcomeError, Content: domain.MsgFlowError, Terminal: true}
}
