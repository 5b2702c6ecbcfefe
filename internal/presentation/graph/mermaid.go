package graph

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/tree"
)

// Overlay contains session state to highlight on the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of the decision tree.
// Shapes follow the node kind:
// - Emergency: ((Circle))
// - Question: [/Parallelogram/]
// - Step: [Rectangle]
// Only emergencies named in filter are drawn; an empty filter draws all.
func GenerateMermaid(t *tree.Tree, overlay *Overlay, filter ...string) string {
	keep := make(map[string]bool, len(filter))
	for _, f := range filter {
		keep[f] = true
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, e := range t.Emergencies {
		if len(keep) > 0 && !keep[e.Name] {
			continue
		}
		emID := "em_" + sanitizeMermaidID(e.Name)
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", emID, escapeLabel(e.Name)))

		for _, q := range e.Questions {
			safeID := sanitizeMermaidID(q.ID)
			sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", safeID, escapeLabel(q.Text)))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", emID, safeID))
			for _, to := range q.Yes {
				sb.WriteString(fmt.Sprintf("    %s -- \"sí\" --> %s\n", safeID, sanitizeMermaidID(to)))
			}
			for _, to := range q.No {
				sb.WriteString(fmt.Sprintf("    %s -- \"no\" --> %s\n", safeID, sanitizeMermaidID(to)))
			}
		}
		for _, s := range e.Steps {
			safeID := sanitizeMermaidID(s.ID)
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", safeID, escapeLabel(s.Text)))
			for _, to := range s.Next {
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", safeID, sanitizeMermaidID(to)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

// SessionOverlay highlights the path a session walked.
func SessionOverlay(s *domain.Session) *Overlay {
	if s == nil {
		return nil
	}
	return &Overlay{
		VisitedNodes: s.Path,
		CurrentNode:  s.Position.NodeID,
	}
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
