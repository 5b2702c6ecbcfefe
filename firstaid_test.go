package firstaid

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/supervisor"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTree_IsValid(t *testing.T) {
	tr, err := DefaultTree()
	require.NoError(t, err)
	assert.NotEmpty(t, tr.Emergencies)

	issues := tree.Validate(tr)
	assert.Empty(t, issues)

	known := make(map[string]bool)
	for _, n := range domain.Emergencies {
		known[n] = true
	}
	for _, e := range tr.Emergencies {
		assert.True(t, known[e.Name], "%q is not a known emergency", e.Name)
	}
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version)
}

func TestBot_IdleTimeout(t *testing.T) {
	clock := supervisor.NewManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	bot, err := New(WithClock(clock), WithIdleTimeout(30*time.Second, 25*time.Second))
	require.NoError(t, err)
	defer bot.Close()
	ctx := context.Background()

	reply, err := bot.Chat(ctx, "s1", "se desmayó mi abuela")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingAnswer, reply.Status)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(30 * time.Second)

	s, err := bot.Sessions().Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingEmergency, s.Status())
}

func TestBot_WithoutIdleTimers(t *testing.T) {
	clock := supervisor.NewManualClock(time.Now())
	bot, err := New(WithClock(clock), WithoutIdleTimers())
	require.NoError(t, err)
	defer bot.Close()
	ctx := context.Background()

	_, err = bot.Chat(ctx, "s1", "me corté")
	require.NoError(t, err)
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(2 * time.Minute)
	reset, err := bot.Expire(ctx, "s1", supervisor.DefaultGrace)
	require.NoError(t, err)
	assert.True(t, reset)
}

func TestBot_Emergencies(t *testing.T) {
	bot, err := New()
	require.NoError(t, err)
	defer bot.Close()

	names := bot.Emergencies(context.Background())
	assert.Contains(t, names, "Sangrado Nasal")
	assert.Contains(t, names, "Hemorragia Severa")
}
