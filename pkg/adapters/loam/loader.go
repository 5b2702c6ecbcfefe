// Package loam reads the decision graph from a folder of markdown notes,
// one note per question or step, through the Loam document engine.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/firstaid/pkg/adapters/memory"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/mitchellh/mapstructure"
)

// Loader adapts a Loam repository to the tree format.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo)), nil
}

// Tree reads every note and assembles the decision graph.
// Notes are grouped by their emergency; IDs default to the file name.
func (l *Loader) Tree(ctx context.Context) (*tree.Tree, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	byName := make(map[string]*tree.Emergency)
	var names []string

	type note struct {
		id   string
		meta NodeMetadata
		body string
		path string
	}
	notes := make([]note, 0, len(docs))
	for _, doc := range docs {
		// List only carries frontmatter; the body needs a full read.
		full, err := l.Repo.Get(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", doc.ID, err)
		}
		rawID := full.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		notes = append(notes, note{id: trimExtension(rawID), meta: full.Data, body: strings.TrimSpace(full.Content), path: doc.ID})
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].id < notes[j].id })

	for _, n := range notes {
		if existing, ok := seen[n.id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", n.id, existing, n.path)
		}
		seen[n.id] = n.path

		if n.meta.Emergency == "" {
			return nil, fmt.Errorf("node %s: missing emergency", n.id)
		}
		e, ok := byName[n.meta.Emergency]
		if !ok {
			e = &tree.Emergency{Name: n.meta.Emergency}
			byName[n.meta.Emergency] = e
			names = append(names, n.meta.Emergency)
		}

		switch domain.NodeKind(n.meta.Kind) {
		case domain.NodeQuestion:
			e.Questions = append(e.Questions, tree.Question{
				ID: n.id, Text: n.body, Order: n.meta.Order,
				Yes: tree.Refs(trimAll(n.meta.Yes)), No: tree.Refs(trimAll(n.meta.No)),
			})
		case domain.NodeStep:
			e.Steps = append(e.Steps, tree.Step{
				ID: n.id, Text: n.body, Order: n.meta.Order,
				Next: tree.Refs(trimAll(n.meta.Next)),
			})
		default:
			return nil, fmt.Errorf("node %s: unknown kind %q", n.id, n.meta.Kind)
		}
	}

	sort.Strings(names)
	t := &tree.Tree{}
	for _, name := range names {
		t.Emergencies = append(t.Emergencies, *byName[name])
	}
	return t, nil
}

// Graph loads the notes into an in-memory graph store.
func (l *Loader) Graph(ctx context.Context) (*memory.Graph, error) {
	t, err := l.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return memory.NewGraph(t), nil
}

// Export writes a tree as one markdown note per node.
func Export(ctx context.Context, repo core.Repository, t *tree.Tree) error {
	for _, e := range t.Emergencies {
		for _, q := range e.Questions {
			meta := NodeMetadata{ID: q.ID, Kind: string(domain.NodeQuestion), Emergency: e.Name, Order: q.Order, Yes: q.Yes, No: q.No}
			if err := save(ctx, repo, meta, q.Text); err != nil {
				return err
			}
		}
		for _, s := range e.Steps {
			meta := NodeMetadata{ID: s.ID, Kind: string(domain.NodeStep), Emergency: e.Name, Order: s.Order, Next: s.Next}
			if err := save(ctx, repo, meta, s.Text); err != nil {
				return err
			}
		}
	}
	return nil
}

func save(ctx context.Context, repo core.Repository, meta NodeMetadata, body string) error {
	front := core.Metadata{}
	if err := mapstructure.Decode(meta, &front); err != nil {
		return fmt.Errorf("failed to encode frontmatter of %s: %w", meta.ID, err)
	}
	doc := core.Document{
		ID:       meta.ID + ".md",
		Content:  body,
		Metadata: front,
	}
	if err := repo.Save(ctx, doc); err != nil {
		return fmt.Errorf("failed to save node %s: %w", meta.ID, err)
	}
	return nil
}

func trimAll(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, trimExtension(strings.TrimSpace(id)))
	}
	return out
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
