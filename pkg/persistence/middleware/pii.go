package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses and phone or ID numbers of seven
// or more digits, optionally grouped by spaces, dots or dashes.
var DefaultPIIPatterns = []string{
	`[\w.+-]+@[\w-]+(\.[\w-]+)+`,
	`\+?\d(?:[ .-]?\d){6,}`,
}

type piiMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks matches of the patterns in
// every turn before it reaches the history store. The history is what the
// language model sees, so redacted text never leaves the process.
func NewPIIMiddleware(patternStrings []string) HistoryMiddleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	// Copy to avoid side effects on the caller's slice.
	masked := make([]domain.Turn, len(turns))
	for i, t := range turns {
		masked[i] = domain.Turn{Role: t.Role, Content: m.mask(t.Content)}
	}
	return m.next.Append(ctx, sessionID, masked...)
}

func (m *piiMiddleware) Recent(ctx context.Context, sessionID string, n int) ([]domain.Turn, error) {
	return m.next.Recent(ctx, sessionID, n)
}

func (m *piiMiddleware) Clear(ctx context.Context, sessionID string) error {
	return m.next.Clear(ctx, sessionID)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
