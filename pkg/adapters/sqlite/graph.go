// Package sqlite stores the decision graph in a SQLite file: one table of
// nodes and one of labeled edges.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/tree"
)

// Graph implements ports.GraphStore over SQLite.
type Graph struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Graph, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	g := &Graph{db: db}
	if err := g.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return g, nil
}

func (g *Graph) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS emergencies (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id        TEXT PRIMARY KEY,
		kind      TEXT NOT NULL CHECK (kind IN ('question', 'step')),
		content   TEXT NOT NULL,
		ord       INTEGER NOT NULL DEFAULT 0,
		emergency TEXT NOT NULL REFERENCES emergencies(name)
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_emergency ON nodes(emergency);

	CREATE TABLE IF NOT EXISTS edges (
		from_id TEXT NOT NULL,
		to_id   TEXT NOT NULL,
		label   TEXT NOT NULL,
		PRIMARY KEY (from_id, label, to_id)
	);
	`
	_, err := g.db.Exec(schema)
	return err
}

// Ping checks the database is reachable.
func (g *Graph) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Close closes the database.
func (g *Graph) Close() error {
	return g.db.Close()
}

const selectTarget = `
	SELECT n.id, n.kind, n.content, n.ord, n.emergency
	FROM edges e JOIN nodes n ON n.id = e.to_id
	WHERE e.from_id = ? AND e.label = ? AND n.kind = ?
	ORDER BY n.ord, n.id
	LIMIT 1`

func (g *Graph) target(ctx context.Context, from string, label tree.EdgeLabel, kind domain.NodeKind) (domain.Node, error) {
	var n domain.Node
	var k string
	err := g.db.QueryRowContext(ctx, selectTarget, from, string(label), string(kind)).
		Scan(&n.ID, &k, &n.Content, &n.Order, &n.Emergency)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Node{}, domain.ErrNodeNotFound
	}
	if err != nil {
		return domain.Node{}, fmt.Errorf("query %s edge from %s: %w", label, from, err)
	}
	n.Kind = domain.NodeKind(k)
	return n, nil
}

// FindEntryQuestion returns the first Question of an Emergency.
func (g *Graph) FindEntryQuestion(ctx context.Context, emergency string) (domain.Node, error) {
	return g.target(ctx, emergency, tree.EdgeHasEvaluation, domain.NodeQuestion)
}

// FindBranchStep returns the Step reached through the given branch.
func (g *Graph) FindBranchStep(ctx context.Context, questionID string, branch domain.Branch) (domain.Node, error) {
	return g.target(ctx, questionID, tree.EdgeLabel(branch), domain.NodeStep)
}

// FindNextStep returns the Step that follows stepID.
func (g *Graph) FindNextStep(ctx context.Context, stepID string) (domain.Node, error) {
	return g.target(ctx, stepID, tree.EdgeFollows, domain.NodeStep)
}

// Emergencies lists the stored emergency names, sorted.
func (g *Graph) Emergencies(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT name FROM emergencies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list emergencies: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Import replaces the stored graph with t in one transaction.
func (g *Graph) Import(ctx context.Context, t *tree.Tree) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM edges`, `DELETE FROM nodes`, `DELETE FROM emergencies`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear graph: %w", err)
		}
	}

	for _, e := range t.Emergencies {
		if _, err := tx.ExecContext(ctx, `INSERT INTO emergencies (name) VALUES (?)`, e.Name); err != nil {
			return fmt.Errorf("insert emergency %q: %w", e.Name, err)
		}
	}
	for _, n := range t.Nodes() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (id, kind, content, ord, emergency) VALUES (?, ?, ?, ?, ?)`,
			n.ID, string(n.Kind), n.Content, n.Order, n.Emergency)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	for _, e := range t.Edges() {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO edges (from_id, to_id, label) VALUES (?, ?, ?)`,
			e.From, e.To, string(e.Label))
		if err != nil {
			return fmt.Errorf("insert edge %s -%s-> %s: %w", e.From, e.Label, e.To, err)
		}
	}

	return tx.Commit()
}

// Stats counts stored records.
func (g *Graph) Stats(ctx context.Context) (emergencies, nodes, edges int, err error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM emergencies),
			(SELECT COUNT(*) FROM nodes),
			(SELECT COUNT(*) FROM edges)`)
	err = row.Scan(&emergencies, &nodes, &edges)
	return
}
