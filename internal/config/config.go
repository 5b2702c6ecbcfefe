// Package config loads the service settings from the environment.
//
// An optional .env file is read first (godotenv); variables already set in the
// environment win. The Neo4j and Google variable names match the ones used by
// existing deployments of the bot.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Graph backends.
const (
	GraphMemory = "memory"
	GraphSQLite = "sqlite"
	GraphNeo4j  = "neo4j"
	GraphLoam   = "loam"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// LLM providers.
const (
	LLMNone   = "none"
	LLMGemini = "gemini"
	LLMOpenAI = "openai"
)

// Idle modes.
const (
	IdleTimer = "timer"
	IdleSweep = "sweep"
	IdleOff   = "off"
)

// Config holds every setting of the service.
type Config struct {
	Port           int      `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string   `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Decision graph.
	GraphBackend  string `envconfig:"GRAPH_BACKEND" default:"memory" validate:"oneof=memory sqlite neo4j loam"`
	TreePath      string `envconfig:"TREE_PATH"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"firstaid.db"`
	LoamPath      string `envconfig:"LOAM_PATH" default:"graph"`
	Neo4jURI      string `envconfig:"NEO4J_URI" validate:"required_if=GraphBackend neo4j"`
	Neo4jUsername string `envconfig:"NEO4J_USERNAME" default:"neo4j"`
	Neo4jPassword string `envconfig:"NEO4J_PASSWORD"`
	Neo4jDatabase string `envconfig:"NEO4J_DATABASE"`

	// Sessions and conversational memory.
	StoreBackend  string        `envconfig:"STORE_BACKEND" default:"memory" validate:"oneof=memory redis"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	HistoryLimit  int           `envconfig:"HISTORY_LIMIT" default:"20" validate:"min=0"`

	// Data at rest. SESSION_KEY is a base64 AES-256 key; empty disables encryption.
	SessionKey          string   `envconfig:"SESSION_KEY" validate:"omitempty,base64"`
	SessionFallbackKeys []string `envconfig:"SESSION_FALLBACK_KEYS" validate:"dive,base64"`
	RedactPII           bool     `envconfig:"REDACT_PII" default:"true"`
	// PIIPatterns replaces the built-in patterns. Items are comma separated.
	PIIPatterns []string `envconfig:"PII_PATTERNS"`

	// Classification.
	RulesPath string `envconfig:"RULES_PATH"`

	// Language model.
	LLMProvider  string        `envconfig:"LLM_PROVIDER" default:"none" validate:"oneof=none gemini openai"`
	LLMClient    string        `envconfig:"LLM_CLIENT" default:"eino" validate:"oneof=eino openai"`
	GoogleAPIKey string        `envconfig:"GOOGLE_API_KEY" validate:"required_if=LLMProvider gemini"`
	OpenAIAPIKey string        `envconfig:"OPENAI_API_KEY" validate:"required_if=LLMProvider openai"`
	LLMBaseURL   string        `envconfig:"LLM_BASE_URL"`
	LLMModel     string        `envconfig:"LLM_MODEL"`
	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"10s"`
	LLMClassify  bool          `envconfig:"LLM_CLASSIFY" default:"true"`

	// Idle expiry.
	IdleMode      string        `envconfig:"IDLE_MODE" default:"timer" validate:"oneof=timer sweep off"`
	IdleDelay     time.Duration `envconfig:"IDLE_DELAY" default:"60s"`
	IdleGrace     time.Duration `envconfig:"IDLE_GRACE" default:"55s"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"15s"`
}

// Load reads envFile (when it exists) and then the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks the settings. Unknown backend names wrap domain.ErrUnknownBackend.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if c.IdleGrace > c.IdleDelay {
			return fmt.Errorf("IDLE_GRACE (%s) must not exceed IDLE_DELAY (%s)", c.IdleGrace, c.IdleDelay)
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	unknown := false
	for _, e := range verrs {
		switch e.Tag() {
		case "oneof":
			unknown = true
			msgs = append(msgs, fmt.Sprintf("%s=%q (want one of: %s)", e.Field(), e.Value(), e.Param()))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required when %s", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	msg := strings.Join(msgs, "; ")
	if unknown {
		return fmt.Errorf("%w: %s", domain.ErrUnknownBackend, msg)
	}
	return fmt.Errorf("invalid configuration: %s", msg)
}

// LLMEnabled reports whether a language model is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMProvider != LLMNone
}

// LLMAPIKey returns the key for the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == LLMGemini {
		return c.GoogleAPIKey
	}
	return c.OpenAIAPIKey
}
