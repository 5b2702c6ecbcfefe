package neo4j

import (
	"context"
	"fmt"

	"github.com/aretw0/firstaid/pkg/tree"
	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var importStatements = []struct {
	param string
	query string
}{
	{"emergencies", `
		UNWIND $emergencies AS name
		MERGE (:Emergencia {nombre: name})`},
	{"questions", `
		UNWIND $questions AS q
		MATCH (e:Emergencia {nombre: q.emergency})
		MERGE (ev:Evaluacion {id: q.id})
		SET ev.pregunta = q.text, ev.orden = q.orden
		MERGE (e)-[:TIENE_EVALUACION]->(ev)`},
	{"steps", `
		UNWIND $steps AS s
		MERGE (p:Paso {id: s.id})
		SET p.accion = s.text, p.orden = s.orden`},
	{"yes", `
		UNWIND $yes AS r
		MATCH (a:Evaluacion {id: r.from}), (b:Paso {id: r.to})
		MERGE (a)-[:SI]->(b)`},
	{"no", `
		UNWIND $no AS r
		MATCH (a:Evaluacion {id: r.from}), (b:Paso {id: r.to})
		MERGE (a)-[:NO]->(b)`},
	{"follows", `
		UNWIND $follows AS r
		MATCH (a:Paso {id: r.from}), (b:Paso {id: r.to})
		MERGE (a)-[:SIGUE]->(b)`},
}

const queryWipe = `
	MATCH (n) WHERE n:Emergencia OR n:Evaluacion OR n:Paso
	DETACH DELETE n`

// importParams flattens a tree into the UNWIND parameter lists.
func importParams(t *tree.Tree) map[string]any {
	params := map[string]any{
		"emergencies": []any{},
		"questions":   []any{},
		"steps":       []any{},
		"yes":         []any{},
		"no":          []any{},
		"follows":     []any{},
	}
	add := func(key string, v map[string]any) {
		params[key] = append(params[key].([]any), v)
	}

	for _, e := range t.Emergencies {
		params["emergencies"] = append(params["emergencies"].([]any), e.Name)
		for _, q := range e.Questions {
			add("questions", map[string]any{"id": q.ID, "text": q.Text, "orden": int64(q.Order), "emergency": e.Name})
		}
		for _, s := range e.Steps {
			add("steps", map[string]any{"id": s.ID, "text": s.Text, "orden": int64(s.Order)})
		}
	}
	for _, edge := range t.Edges() {
		rel := map[string]any{"from": edge.From, "to": edge.To}
		switch edge.Label {
		case tree.EdgeYes:
			add("yes", rel)
		case tree.EdgeNo:
			add("no", rel)
		case tree.EdgeFollows:
			add("follows", rel)
		}
	}
	return params
}

// Import replaces the stored graph with t. Statements run in one write
// transaction so a failure leaves the previous graph in place.
func (g *Graph) Import(ctx context.Context, t *tree.Tree) error {
	params := importParams(t)

	session := g.driver.NewSession(ctx, driver.SessionConfig{
		AccessMode:   driver.AccessModeWrite,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx driver.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, queryWipe, nil); err != nil {
			return nil, fmt.Errorf("wipe graph: %w", err)
		}
		for _, stmt := range importStatements {
			res, err := tx.Run(ctx, stmt.query, map[string]any{stmt.param: params[stmt.param]})
			if err != nil {
				return nil, fmt.Errorf("import %s: %w", stmt.param, err)
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, fmt.Errorf("import %s: %w", stmt.param, err)
			}
		}
		return nil, nil
	})
	return err
}
