package tree

import (
	"fmt"
	"strings"
)

// Severity of a validation issue.
type Severity string

const (
	// SeverityError marks data the engine cannot traverse correctly.
	SeverityError Severity = "error"
	// SeverityWarning marks data that ends a flow early (a terminal outcome).
	SeverityWarning Severity = "warning"
)

// Issue is one finding of Validate.
type Issue struct {
	Severity  Severity
	Emergency string
	NodeID    string
	Message   string
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Emergency, i.Message)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", i.Severity, i.Emergency, i.NodeID, i.Message)
}

// Validate checks the tree for broken links, cross-emergency edges, missing
// branches and FOLLOWS cycles.
func Validate(t *Tree) []Issue {
	var issues []Issue
	add := func(sev Severity, emergency, nodeID, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Emergency: emergency, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
	}

	owner := make(map[string]string)
	names := make(map[string]bool)
	for _, e := range t.Emergencies {
		if strings.TrimSpace(e.Name) == "" {
			add(SeverityError, "?", "", "emergency without name")
			continue
		}
		if names[e.Name] {
			add(SeverityError, e.Name, "", "duplicate emergency name")
		}
		names[e.Name] = true
		if len(e.Questions) == 0 {
			add(SeverityWarning, e.Name, "", "no entry question; flows will end immediately")
		}
		for _, q := range e.Questions {
			if prev, ok := owner[q.ID]; ok {
				add(SeverityError, e.Name, q.ID, "duplicate node id (also in %q)", prev)
			}
			owner[q.ID] = e.Name
		}
		for _, s := range e.Steps {
			if prev, ok := owner[s.ID]; ok {
				add(SeverityError, e.Name, s.ID, "duplicate node id (also in %q)", prev)
			}
			owner[s.ID] = e.Name
		}
	}

	steps := make(map[string]Step)
	for _, e := range t.Emergencies {
		for _, s := range e.Steps {
			steps[s.ID] = s
		}
	}

	checkRef := func(emergency, from, to string, label EdgeLabel) {
		target, ok := owner[to]
		if !ok {
			add(SeverityError, emergency, from, "%s edge points to unknown node %q", label, to)
			return
		}
		if target != emergency {
			add(SeverityError, emergency, from, "%s edge crosses into emergency %q", label, target)
			return
		}
		if _, isStep := steps[to]; !isStep {
			add(SeverityError, emergency, from, "%s edge must point to a step, got %q", label, to)
		}
	}

	for _, e := range t.Emergencies {
		for _, q := range e.Questions {
			if strings.TrimSpace(q.Text) == "" {
				add(SeverityError, e.Name, q.ID, "question without text")
			}
			if len(q.Yes) == 0 {
				add(SeverityWarning, e.Name, q.ID, "no YES branch; answering yes ends the flow")
			}
			if len(q.No) == 0 {
				add(SeverityWarning, e.Name, q.ID, "no NO branch; answering no ends the flow")
			}
			for _, to := range q.Yes {
				checkRef(e.Name, q.ID, to, EdgeYes)
			}
			for _, to := range q.No {
				checkRef(e.Name, q.ID, to, EdgeNo)
			}
		}
		for _, s := range e.Steps {
			if strings.TrimSpace(s.Text) == "" {
				add(SeverityWarning, e.Name, s.ID, "step without text; reaching it ends the flow")
			}
			for _, to := range s.Next {
				checkRef(e.Name, s.ID, to, EdgeFollows)
			}
		}
	}

	for _, id := range followCycles(steps) {
		add(SeverityError, owner[id], id, "FOLLOWS cycle")
	}

	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// followCycles walks the first FOLLOWS edge of every step (the one traversal
// consumes) and returns a step of each cycle found.
func followCycles(steps map[string]Step) []string {
	const (
		unvisited = iota
		inProgress
		done
	)
	mark := make(map[string]int, len(steps))
	var cycles []string

	for id := range steps {
		if mark[id] != unvisited {
			continue
		}
		var path []string
		cur := id
		for {
			if mark[cur] == inProgress {
				cycles = append(cycles, cur)
				break
			}
			if mark[cur] == done {
				break
			}
			mark[cur] = inProgress
			path = append(path, cur)
			s, ok := steps[cur]
			if !ok || len(s.Next) == 0 {
				break
			}
			cur = firstNext(steps, s.Next)
			if cur == "" {
				break
			}
		}
		for _, p := range path {
			mark[p] = done
		}
	}
	return cycles
}

// firstNext mirrors the runtime tie-break: lowest order, then lowest id.
func firstNext(steps map[string]Step, refs Refs) string {
	best := ""
	for _, id := range refs {
		s, ok := steps[id]
		if !ok {
			continue
		}
		if best == "" {
			best = id
			continue
		}
		b := steps[best]
		if s.Order < b.Order || (s.Order == b.Order && s.ID < b.ID) {
			best = id
		}
	}
	return best
}
