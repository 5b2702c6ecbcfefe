package domain

import "strings"

// NodeKind distinguishes the two kinds of records in the decision graph.
type NodeKind string

const (
	// NodeQuestion is a yes/no evaluation with YES and NO edges to steps.
	NodeQuestion NodeKind = "question"
	// NodeStep is an instruction with an optional FOLLOWS edge to the next step.
	NodeStep NodeKind = "step"
)

// Branch labels the edges leaving a Question.
type Branch string

const (
	BranchYes Branch = "YES"
	BranchNo  Branch = "NO"
)

// Node represents a Question or Step of one Emergency.
type Node struct {
	ID        string   `json:"id" yaml:"id"`
	Kind      NodeKind `json:"kind" yaml:"kind"`
	Content   string   `json:"content" yaml:"content"`
	Order     int      `json:"order" yaml:"order"`
	Emergency string   `json:"emergency,omitempty" yaml:"emergency,omitempty"`
}

// Empty reports whether the node carries no usable content.
func (n Node) Empty() bool {
	return strings.TrimSpace(n.Content) == ""
}

// Less orders candidate nodes: smallest order first, then smallest ID.
// Every graph adapter uses it to pick one record out of several.
func Less(a, b Node) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.ID < b.ID
}
