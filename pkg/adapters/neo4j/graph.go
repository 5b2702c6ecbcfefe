// Package neo4j reads the decision graph from Neo4j.
//
// Schema:
//
//	(:Emergencia {nombre})-[:TIENE_EVALUACION]->(:Evaluacion {id, pregunta, orden})
//	(:Evaluacion)-[:SI|NO]->(:Paso {id, accion, orden})
//	(:Paso)-[:SIGUE]->(:Paso)
package neo4j

import (
	"context"
	"fmt"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/mitchellh/mapstructure"
	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	queryEntry = `
		MATCH (e:Emergencia {nombre: $name})-[:TIENE_EVALUACION]->(ev:Evaluacion)
		RETURN ev.id AS id, ev.pregunta AS content, coalesce(ev.orden, 0) AS orden, e.nombre AS emergency
		ORDER BY orden, id LIMIT 1`

	// %s is a relationship type from relType, never user input.
	queryBranch = `
		MATCH (e:Emergencia)-[:TIENE_EVALUACION]->(ev:Evaluacion {id: $id})-[:%s]->(p:Paso)
		RETURN p.id AS id, p.accion AS content, coalesce(p.orden, 0) AS orden, e.nombre AS emergency
		ORDER BY orden, id LIMIT 1`

	queryNext = `
		MATCH (cur:Paso {id: $id})-[:SIGUE]->(p:Paso)
		RETURN p.id AS id, p.accion AS content, coalesce(p.orden, 0) AS orden, '' AS emergency
		ORDER BY orden, id LIMIT 1`

	queryEmergencies = `
		MATCH (e:Emergencia)
		RETURN e.nombre AS name
		ORDER BY name`
)

// Config holds the connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Graph implements ports.GraphStore over Neo4j.
type Graph struct {
	driver   driver.DriverWithContext
	database string
}

// Open creates the driver and verifies connectivity. A failure here is
// meant to stop the process.
func Open(ctx context.Context, cfg Config) (*Graph, error) {
	d, err := driver.NewDriverWithContext(cfg.URI, driver.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}
	return &Graph{driver: d, database: cfg.Database}, nil
}

// Close releases the driver.
func (g *Graph) Close() error {
	return g.driver.Close(context.Background())
}

// Ping checks the server is reachable.
func (g *Graph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

func (g *Graph) run(ctx context.Context, query string, params map[string]any) (*driver.EagerResult, error) {
	opts := []driver.ExecuteQueryConfigurationOption{driver.ExecuteQueryWithReadersRouting()}
	if g.database != "" {
		opts = append(opts, driver.ExecuteQueryWithDatabase(g.database))
	}
	return driver.ExecuteQuery(ctx, g.driver, query, params, driver.EagerResultTransformer, opts...)
}

func (g *Graph) one(ctx context.Context, query string, params map[string]any, kind domain.NodeKind) (domain.Node, error) {
	res, err := g.run(ctx, query, params)
	if err != nil {
		return domain.Node{}, fmt.Errorf("neo4j query failed: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.Node{}, domain.ErrNodeNotFound
	}
	return decodeNode(res.Records[0].AsMap(), kind)
}

// FindEntryQuestion returns the first Question of an Emergency.
func (g *Graph) FindEntryQuestion(ctx context.Context, emergency string) (domain.Node, error) {
	return g.one(ctx, queryEntry, map[string]any{"name": emergency}, domain.NodeQuestion)
}

// FindBranchStep returns the Step reached through the given branch.
func (g *Graph) FindBranchStep(ctx context.Context, questionID string, branch domain.Branch) (domain.Node, error) {
	rel, err := relType(branch)
	if err != nil {
		return domain.Node{}, err
	}
	return g.one(ctx, fmt.Sprintf(queryBranch, rel), map[string]any{"id": questionID}, domain.NodeStep)
}

// FindNextStep returns the Step that follows stepID.
func (g *Graph) FindNextStep(ctx context.Context, stepID string) (domain.Node, error) {
	return g.one(ctx, queryNext, map[string]any{"id": stepID}, domain.NodeStep)
}

// Emergencies lists the emergency names, sorted.
func (g *Graph) Emergencies(ctx context.Context) ([]string, error) {
	res, err := g.run(ctx, queryEmergencies, nil)
	if err != nil {
		return nil, fmt.Errorf("neo4j query failed: %w", err)
	}
	names := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		if name, ok := r.AsMap()["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// relType maps a branch to its relationship type.
func relType(b domain.Branch) (string, error) {
	switch b {
	case domain.BranchYes:
		return "SI", nil
	case domain.BranchNo:
		return "NO", nil
	default:
		return "", fmt.Errorf("unknown branch %q", b)
	}
}

type record struct {
	ID        string `mapstructure:"id"`
	Content   string `mapstructure:"content"`
	Order     int    `mapstructure:"orden"`
	Emergency string `mapstructure:"emergency"`
}

// decodeNode turns a result row into a node.
func decodeNode(row map[string]any, kind domain.NodeKind) (domain.Node, error) {
	var r record
	if err := mapstructure.Decode(row, &r); err != nil {
		return domain.Node{}, fmt.Errorf("failed to decode neo4j record: %w", err)
	}
	return domain.Node{ID: r.ID, Kind: kind, Content: r.Content, Order: r.Order, Emergency: r.Emergency}, nil
}
