package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3\n")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.Contains(t, buf.String(), "160")
}

func TestRenderer(t *testing.T) {
	out, err := NewRenderer()("**Presiona** la herida.")
	require.NoError(t, err)
	assert.Contains(t, out, "Presiona")
}

func TestPlain(t *testing.T) {
	out, err := Plain("hola")
	require.NoError(t, err)
	assert.Equal(t, "hola\n", out)
}
