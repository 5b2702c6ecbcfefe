// Package tree defines the portable file format of the decision graph.
//
// A tree file lists emergencies with their questions and steps. Graph adapters
// load it directly (memory) or import it into their backend (sqlite, neo4j).
package tree

import (
	"fmt"
	"os"
	"sort"

	"github.com/aretw0/firstaid/pkg/domain"
	"gopkg.in/yaml.v3"
)

// EdgeLabel names the relations of the graph.
type EdgeLabel string

const (
	EdgeHasEvaluation EdgeLabel = "HAS_EVALUATION"
	EdgeYes           EdgeLabel = "YES"
	EdgeNo            EdgeLabel = "NO"
	EdgeFollows       EdgeLabel = "FOLLOWS"
)

// Tree is the root of a decision-graph file.
type Tree struct {
	Emergencies []Emergency `yaml:"emergencies"`
}

// Emergency groups the nodes reachable from one emergency name.
type Emergency struct {
	Name      string     `yaml:"name"`
	Questions []Question `yaml:"questions"`
	Steps     []Step     `yaml:"steps"`
}

// Question is an entry evaluation with YES/NO edges.
type Question struct {
	ID    string `yaml:"id"`
	Text  string `yaml:"text"`
	Order int    `yaml:"order"`
	Yes   Refs   `yaml:"yes"`
	No    Refs   `yaml:"no"`
}

// Step is an instruction with optional FOLLOWS edges.
type Step struct {
	ID    string `yaml:"id"`
	Text  string `yaml:"text"`
	Order int    `yaml:"order"`
	Next  Refs   `yaml:"next"`
}

// Refs is a list of node IDs. In YAML it accepts a scalar or a sequence.
type Refs []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Refs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "" {
			*r = nil
			return nil
		}
		*r = Refs{value.Value}
		return nil
	case yaml.SequenceNode:
		var ids []string
		if err := value.Decode(&ids); err != nil {
			return err
		}
		*r = ids
		return nil
	default:
		return fmt.Errorf("line %d: expected node id or list of ids", value.Line)
	}
}

// Edge is a directed relation between two records.
type Edge struct {
	From  string
	To    string
	Label EdgeLabel
}

// Load reads and parses a tree file.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tree %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a tree from YAML.
func Parse(data []byte) (*Tree, error) {
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Nodes flattens the tree into domain nodes.
func (t *Tree) Nodes() []domain.Node {
	var nodes []domain.Node
	for _, e := range t.Emergencies {
		for _, q := range e.Questions {
			nodes = append(nodes, domain.Node{ID: q.ID, Kind: domain.NodeQuestion, Content: q.Text, Order: q.Order, Emergency: e.Name})
		}
		for _, s := range e.Steps {
			nodes = append(nodes, domain.Node{ID: s.ID, Kind: domain.NodeStep, Content: s.Text, Order: s.Order, Emergency: e.Name})
		}
	}
	return nodes
}

// Edges lists every relation declared by the tree. HAS_EVALUATION edges start
// at the emergency name.
func (t *Tree) Edges() []Edge {
	var edges []Edge
	for _, e := range t.Emergencies {
		for _, q := range e.Questions {
			edges = append(edges, Edge{From: e.Name, To: q.ID, Label: EdgeHasEvaluation})
			for _, to := range q.Yes {
				edges = append(edges, Edge{From: q.ID, To: to, Label: EdgeYes})
			}
			for _, to := range q.No {
				edges = append(edges, Edge{From: q.ID, To: to, Label: EdgeNo})
			}
		}
		for _, s := range e.Steps {
			for _, to := range s.Next {
				edges = append(edges, Edge{From: s.ID, To: to, Label: EdgeFollows})
			}
		}
	}
	return edges
}

// Names returns the emergency names, sorted.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.Emergencies))
	for _, e := range t.Emergencies {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
