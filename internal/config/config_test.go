package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, GraphMemory, cfg.GraphBackend)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, LLMNone, cfg.LLMProvider)
	assert.Equal(t, IdleTimer, cfg.IdleMode)
	assert.Equal(t, 60*time.Second, cfg.IdleDelay)
	assert.Equal(t, 55*time.Second, cfg.IdleGrace)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.LLMEnabled())
	assert.True(t, cfg.RedactPII)
	assert.Empty(t, cfg.SessionKey)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "neo4j")
	t.Setenv("NEO4J_URI", "neo4j://db:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("IDLE_DELAY", "2m")
	t.Setenv("IDLE_GRACE", "90s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "neo4j://db:7687", cfg.Neo4jURI)
	assert.Equal(t, "neo4j", cfg.Neo4jUsername)
	assert.Equal(t, "secret", cfg.Neo4jPassword)
	assert.Equal(t, "g-key", cfg.LLMAPIKey())
	assert.True(t, cfg.LLMEnabled())
	assert.Equal(t, 2*time.Minute, cfg.IdleDelay)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\nSTORE_BACKEND=redis\n"), 0o600))
	unset(t, "PORT", "STORE_BACKEND")
	// Values already in the environment win over the file.
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		unknown bool
	}{
		{"unknown graph backend", map[string]string{"GRAPH_BACKEND": "postgres"}, true},
		{"unknown store backend", map[string]string{"STORE_BACKEND": "etcd"}, true},
		{"unknown idle mode", map[string]string{"IDLE_MODE": "never"}, true},
		{"neo4j without uri", map[string]string{"GRAPH_BACKEND": "neo4j"}, false},
		{"gemini without key", map[string]string{"LLM_PROVIDER": "gemini"}, false},
		{"grace longer than delay", map[string]string{"IDLE_DELAY": "10s", "IDLE_GRACE": "20s"}, false},
		{"bad duration", map[string]string{"IDLE_DELAY": "soon"}, false},
		{"session key not base64", map[string]string{"SESSION_KEY": "not a key!"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Equal(t, tt.unknown, errors.Is(err, domain.ErrUnknownBackend))
		})
	}
}

// unset clears keys for the test; t.Setenv restores them afterwards.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}
