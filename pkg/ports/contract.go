package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		state := domain.NewSession(sessionID)
		state.Touch(now)
		state.Emergency = "Fracturas"
		state.Position = domain.Position{NodeID: "q1", Kind: domain.PositionQuestion}
		state.AwaitingAnswer = true
		state.Path = []string{"q1"}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "Fracturas", loaded.Emergency)
		assert.Equal(t, state.Position, loaded.Position)
		assert.True(t, loaded.AwaitingAnswer)
		assert.True(t, now.Equal(loaded.LastActivity), "LastActivity should survive persistence")
		assert.Equal(t, []string{"q1"}, loaded.Path)
		assert.Equal(t, domain.StatusAwaitingAnswer, loaded.Status())
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Emergency = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Emergency)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunHistoryStoreContract verifies a HistoryStore implementation.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	sessionID := "contract-history-" + time.Now().Format("20060102150405")

	t.Run("Append and Recent", func(t *testing.T) {
		err := store.Append(ctx, sessionID,
			domain.Turn{Role: domain.RoleUser, Content: "me corté"},
			domain.Turn{Role: domain.RoleAssistant, Content: "¿Sangra mucho?"},
		)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, sessionID, domain.Turn{Role: domain.RoleUser, Content: "sí"}))

		all, err := store.Recent(ctx, sessionID, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "me corté", all[0].Content)
		assert.Equal(t, domain.RoleAssistant, all[1].Role)

		last, err := store.Recent(ctx, sessionID, 2)
		require.NoError(t, err)
		require.Len(t, last, 2)
		assert.Equal(t, "¿Sangra mucho?", last[0].Content)
		assert.Equal(t, "sí", last[1].Content)
	})

	t.Run("Unknown Session Is Empty", func(t *testing.T) {
		turns, err := store.Recent(ctx, "unknown-"+sessionID, 5)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, sessionID))
		turns, err := store.Recent(ctx, sessionID, 0)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

// ContractTree is the decision graph every GraphStore contract run loads.
// It includes ties so adapters prove they apply domain.Less.
func ContractTree() *tree.Tree {
	return &tree.Tree{Emergencies: []tree.Emergency{
		{
			Name: "Cortes y Raspaduras Menores",
			Questions: []tree.Question{
				{ID: "corte-q2", Text: "¿Hay un objeto clavado?", Order: 0},
				{ID: "corte-q1", Text: "¿La herida sangra abundantemente?", Order: 0,
					Yes: tree.Refs{"corte-s-torniquete", "corte-s-presion"},
					No:  tree.Refs{"corte-s-lavar"}},
			},
			Steps: []tree.Step{
				{ID: "corte-s-presion", Text: "Aplica presión firme.", Order: 1},
				{ID: "corte-s-torniquete", Text: "Considera un torniquete.", Order: 2},
				{ID: "corte-s-lavar", Text: "Lava la herida.", Order: 1, Next: tree.Refs{"corte-s-cubrir-b", "corte-s-cubrir-a"}},
				{ID: "corte-s-cubrir-a", Text: "Cubre la herida.", Order: 2},
				{ID: "corte-s-cubrir-b", Text: "Cubre la herida con gasa.", Order: 2},
			},
		},
		{
			Name: "Hemorragias",
			Questions: []tree.Question{
				{ID: "hem-q1", Text: "¿La sangre sale a chorros?", Order: 1, Yes: tree.Refs{"hem-s1"}},
			},
			Steps: []tree.Step{
				{ID: "hem-s1", Text: "Llama al 160.", Order: 1},
			},
		},
	}}
}

// RunGraphStoreContract verifies a GraphStore implementation. newStore must
// return a store holding exactly the given tree.
func RunGraphStoreContract(t *testing.T, newStore func(t *testing.T, tr *tree.Tree) GraphStore) {
	ctx := context.Background()
	store := newStore(t, ContractTree())

	t.Run("Entry Question Tie-Break", func(t *testing.T) {
		n, err := store.FindEntryQuestion(ctx, "Cortes y Raspaduras Menores")
		require.NoError(t, err)
		assert.Equal(t, "corte-q1", n.ID, "equal order resolves to smallest id")
		assert.Equal(t, domain.NodeQuestion, n.Kind)
		assert.Equal(t, "¿La herida sangra abundantemente?", n.Content)
	})

	t.Run("Entry Question Miss", func(t *testing.T) {
		_, err := store.FindEntryQuestion(ctx, "Desconocida")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})

	t.Run("Branch Lowest Order Wins", func(t *testing.T) {
		n, err := store.FindBranchStep(ctx, "corte-q1", domain.BranchYes)
		require.NoError(t, err)
		assert.Equal(t, "corte-s-presion", n.ID)
		assert.Equal(t, domain.NodeStep, n.Kind)
		assert.Equal(t, 1, n.Order)

		n, err = store.FindBranchStep(ctx, "corte-q1", domain.BranchNo)
		require.NoError(t, err)
		assert.Equal(t, "corte-s-lavar", n.ID)
	})

	t.Run("Branch Miss", func(t *testing.T) {
		_, err := store.FindBranchStep(ctx, "hem-q1", domain.BranchNo)
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)

		_, err = store.FindBranchStep(ctx, "corte-q2", domain.BranchYes)
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})

	t.Run("Next Step Tie-Break", func(t *testing.T) {
		n, err := store.FindNextStep(ctx, "corte-s-lavar")
		require.NoError(t, err)
		assert.Equal(t, "corte-s-cubrir-a", n.ID)
	})

	t.Run("Next Step Miss", func(t *testing.T) {
		_, err := store.FindNextStep(ctx, "corte-s-presion")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})

	t.Run("Emergencies", func(t *testing.T) {
		names, err := store.Emergencies(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Cortes y Raspaduras Menores", "Hemorragias"}, names)
	})
}
