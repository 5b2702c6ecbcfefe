package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/firstaid/internal/testutils"
	"github.com/aretw0/firstaid/pkg/ports"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_GraphContract(t *testing.T) {
	ports.RunGraphStoreContract(t, func(t *testing.T, tr *tree.Tree) ports.GraphStore {
		_, repo := testutils.SetupTestRepo(t)
		require.NoError(t, Export(context.Background(), repo, tr))

		g, err := New(loam.NewTypedRepository[NodeMetadata](repo)).Graph(context.Background())
		require.NoError(t, err)
		return g
	})
}

func TestLoader_ReadsHandWrittenNotes(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)

	files := map[string]string{
		"ojo-q1.md": `---
kind: question
emergency: Cuerpo Extraño en el Ojo
yes: [ojo-s1.md]
---
¿El objeto está clavado en el ojo?
`,
		"ojo-s1.md": `---
id: ojo-s1
kind: step
emergency: Cuerpo Extraño en el Ojo
order: 1
---
No intente retirarlo. Cubra ambos ojos.
`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	tr, err := New(loam.NewTypedRepository[NodeMetadata](repo)).Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, tr.Emergencies, 1)

	e := tr.Emergencies[0]
	assert.Equal(t, "Cuerpo Extraño en el Ojo", e.Name)
	require.Len(t, e.Questions, 1)
	assert.Equal(t, "ojo-q1", e.Questions[0].ID, "ID defaults to the file name")
	assert.Equal(t, "¿El objeto está clavado en el ojo?", e.Questions[0].Text)
	assert.Equal(t, tree.Refs{"ojo-s1"}, e.Questions[0].Yes)
	require.Len(t, e.Steps, 1)
	assert.Equal(t, 1, e.Steps[0].Order)

	assert.Empty(t, tree.Validate(tr), "notes form a valid tree")
}

func TestLoader_DetectsCollisions(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)

	files := map[string]string{
		"foo.md": "---\nid: foo\nkind: step\nemergency: E\n---\nA",
		"bar.md": "---\nid: foo\nkind: step\nemergency: E\n---\nB",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	_, err := New(loam.NewTypedRepository[NodeMetadata](repo)).Tree(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestLoader_RejectsIncompleteNotes(t *testing.T) {
	tests := map[string]string{
		"missing emergency": "---\nkind: step\n---\nA",
		"unknown kind":      "---\nkind: action\nemergency: E\n---\nA",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir, repo := testutils.SetupTestRepo(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "n.md"), []byte(content), 0644))

			_, err := New(loam.NewTypedRepository[NodeMetadata](repo)).Tree(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestExport_WritesReadableNotes(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	want := ports.ContractTree()
	require.NoError(t, Export(context.Background(), repo, want))

	raw, err := os.ReadFile(filepath.Join(dir, "corte-q1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "emergency: Cortes y Raspaduras Menores")
	assert.Contains(t, string(raw), "¿La herida sangra abundantemente?")

	got, err := New(loam.NewTypedRepository[NodeMetadata](repo)).Tree(context.Background())
	require.NoError(t, err)
	assert.False(t, tree.HasErrors(tree.Validate(got)))
	require.Len(t, got.Emergencies, 2)

	texts := make(map[string]string)
	for _, e := range got.Emergencies {
		for _, q := range e.Questions {
			texts[q.ID] = q.Text
		}
		for _, s := range e.Steps {
			texts[s.ID] = s.Text
		}
	}
	for _, e := range want.Emergencies {
		for _, q := range e.Questions {
			assert.Equal(t, q.Text, texts[q.ID], q.ID)
		}
		for _, s := range e.Steps {
			assert.Equal(t, s.Text, texts[s.ID], s.ID)
		}
	}
}
