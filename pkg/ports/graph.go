package ports

import (
	"context"

	"github.com/aretw0/firstaid/pkg/domain"
)

// GraphStore answers the read-only decision-graph queries.
//
// Every lookup returns domain.ErrNodeNotFound on a miss. When several records
// match, implementations pick the one ordered first by domain.Less.
type GraphStore interface {
	// FindEntryQuestion returns the first Question of an Emergency.
	FindEntryQuestion(ctx context.Context, emergency string) (domain.Node, error)

	// FindBranchStep returns the Step reached from a Question through the given branch.
	FindBranchStep(ctx context.Context, questionID string, branch domain.Branch) (domain.Node, error)

	// FindNextStep returns the Step that FOLLOWS the given one.
	FindNextStep(ctx context.Context, stepID string) (domain.Node, error)

	// Emergencies lists the emergency names known to the graph, sorted.
	Emergencies(ctx context.Context) ([]string, error)
}
