// Package classifier maps free-text emergency descriptions to emergency names.
//
// The first tier is a ranked keyword table; the second, optional tier asks a
// language model to pick a name out of a closed set. Chain composes them.
package classifier

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/firstaid/pkg/domain"
)

// Keyword classifies by substring match over a ranked rule table.
// The table can be swapped at runtime (see Watch).
type Keyword struct {
	table atomic.Pointer[RuleTable]
}

// NewKeyword creates a keyword classifier. A nil table means DefaultRules.
func NewKeyword(table *RuleTable) *Keyword {
	if table == nil {
		table = MustDefaultTable()
	}
	k := &Keyword{}
	k.table.Store(table)
	return k
}

// Classify implements ports.Classifier. Keywords only look at text.
func (k *Keyword) Classify(ctx context.Context, text string, _ []domain.Turn) (string, bool) {
	return k.table.Load().Match(text)
}

// Table returns the active rule table.
func (k *Keyword) Table() *RuleTable {
	return k.table.Load()
}

// SetTable atomically replaces the rule table.
func (k *Keyword) SetTable(t *RuleTable) {
	k.table.Store(t)
}
