package memory

import (
	"context"
	"sort"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/tree"
)

// Graph implements ports.GraphStore over an in-memory index of a tree.
// It is immutable once built and safe for concurrent use.
type Graph struct {
	entries  map[string][]domain.Node
	branches map[string]map[domain.Branch][]domain.Node
	next     map[string][]domain.Node
	names    []string
}

// NewGraph indexes a tree. Edges pointing to unknown nodes are skipped;
// use tree.Validate to report them.
func NewGraph(t *tree.Tree) *Graph {
	g := &Graph{
		entries:  make(map[string][]domain.Node),
		branches: make(map[string]map[domain.Branch][]domain.Node),
		next:     make(map[string][]domain.Node),
		names:    t.Names(),
	}

	nodes := make(map[string]domain.Node)
	for _, n := range t.Nodes() {
		nodes[n.ID] = n
	}

	for _, e := range t.Edges() {
		switch e.Label {
		case tree.EdgeHasEvaluation:
			if n, ok := nodes[e.To]; ok {
				g.entries[e.From] = append(g.entries[e.From], n)
			}
		case tree.EdgeYes, tree.EdgeNo:
			to, ok := nodes[e.To]
			if !ok || to.Kind != domain.NodeStep {
				continue
			}
			if g.branches[e.From] == nil {
				g.branches[e.From] = make(map[domain.Branch][]domain.Node)
			}
			b := domain.Branch(e.Label)
			g.branches[e.From][b] = append(g.branches[e.From][b], to)
		case tree.EdgeFollows:
			if to, ok := nodes[e.To]; ok && to.Kind == domain.NodeStep {
				g.next[e.From] = append(g.next[e.From], to)
			}
		}
	}
	return g
}

// FindEntryQuestion returns the first Question of an Emergency.
func (g *Graph) FindEntryQuestion(ctx context.Context, emergency string) (domain.Node, error) {
	return first(g.entries[emergency])
}

// FindBranchStep returns the Step reached through the given branch.
func (g *Graph) FindBranchStep(ctx context.Context, questionID string, branch domain.Branch) (domain.Node, error) {
	return first(g.branches[questionID][branch])
}

// FindNextStep returns the Step that follows stepID.
func (g *Graph) FindNextStep(ctx context.Context, stepID string) (domain.Node, error) {
	return first(g.next[stepID])
}

// Emergencies lists the emergency names of the tree.
func (g *Graph) Emergencies(ctx context.Context) ([]string, error) {
	return append([]string(nil), g.names...), nil
}

func first(candidates []domain.Node) (domain.Node, error) {
	if len(candidates) == 0 {
		return domain.Node{}, domain.ErrNodeNotFound
	}
	sorted := append([]domain.Node(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return domain.Less(sorted[i], sorted[j]) })
	return sorted[0], nil
}
