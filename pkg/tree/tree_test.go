package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
emergencies:
  - name: Cortes y Raspaduras Menores
    questions:
      - id: corte-q1
        text: "¿La herida sangra abundantemente?"
        yes: corte-s-presion
        no: [corte-s-lavar]
    steps:
      - id: corte-s-presion
        text: Aplica presión firme con una gasa limpia.
        order: 1
      - id: corte-s-lavar
        text: Lava la herida con agua y jabón.
        order: 1
        next: corte-s-cubrir
      - id: corte-s-cubrir
        text: Cubre la herida con una venda.
        order: 2
`

func TestParse(t *testing.T) {
	tr, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, tr.Emergencies, 1)

	e := tr.Emergencies[0]
	assert.Equal(t, "Cortes y Raspaduras Menores", e.Name)
	assert.Equal(t, Refs{"corte-s-presion"}, e.Questions[0].Yes, "scalar ref decodes to a one-element list")
	assert.Equal(t, Refs{"corte-s-lavar"}, e.Questions[0].No)
	assert.Equal(t, Refs{"corte-s-cubrir"}, e.Steps[1].Next)

	nodes := tr.Nodes()
	assert.Len(t, nodes, 4)
	assert.Equal(t, domain.NodeQuestion, nodes[0].Kind)
	assert.Equal(t, "Cortes y Raspaduras Menores", nodes[3].Emergency)

	edges := tr.Edges()
	assert.Contains(t, edges, Edge{From: "Cortes y Raspaduras Menores", To: "corte-q1", Label: EdgeHasEvaluation})
	assert.Contains(t, edges, Edge{From: "corte-q1", To: "corte-s-presion", Label: EdgeYes})
	assert.Contains(t, edges, Edge{From: "corte-s-lavar", To: "corte-s-cubrir", Label: EdgeFollows})

	assert.Empty(t, Validate(tr))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	tr, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cortes y Raspaduras Menores"}, tr.Names())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tr := &Tree{Emergencies: []Emergency{
		{
			Name: "A",
			Questions: []Question{
				{ID: "a-q", Text: "¿Respira?", Yes: Refs{"a-s1"}},
			},
			Steps: []Step{
				{ID: "a-s1", Text: "uno", Next: Refs{"a-s2"}},
				{ID: "a-s2", Text: "dos", Next: Refs{"a-s1"}},
				{ID: "a-s3", Text: "tres", Next: Refs{"b-s1"}},
			},
		},
		{
			Name:  "B",
			Steps: []Step{{ID: "b-s1", Text: "otro"}},
		},
	}}

	issues := Validate(tr)
	require.True(t, HasErrors(issues))

	var messages []string
	for _, i := range issues {
		messages = append(messages, i.Message)
	}
	assert.Contains(t, messages, "no NO branch; answering no ends the flow")
	assert.Contains(t, messages, "FOLLOWS edge crosses into emergency \"B\"")
	assert.Contains(t, messages, "FOLLOWS cycle")
	assert.Contains(t, messages, "no entry question; flows will end immediately")
}

func TestRefs_RejectsMapping(t *testing.T) {
	_, err := Parse([]byte("emergencies:\n  - name: X\n    questions:\n      - id: q\n        yes: {a: b}\n"))
	assert.Error(t, err)
}
