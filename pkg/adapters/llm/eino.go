package llm

import (
	"context"
	"fmt"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds the connection settings shared by both clients.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

func (c Config) model() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

// Eino is a Completer backed by an Eino chat model.
type Eino struct {
	model model.BaseChatModel
}

// NewEino builds the Eino OpenAI chat model from cfg.
func NewEino(ctx context.Context, cfg Config) (*Eino, error) {
	mc := &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.model(),
	}
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		mc.Temperature = &t
	}
	if cfg.MaxTokens > 0 {
		n := cfg.MaxTokens
		mc.MaxTokens = &n
	}

	cm, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}
	return &Eino{model: cm}, nil
}

// NewEinoFromModel wraps an existing chat model.
func NewEinoFromModel(m model.BaseChatModel) *Eino {
	return &Eino{model: m}
}

// Complete implements ports.Completer.
func (e *Eino) Complete(ctx context.Context, system string, history []domain.Turn, prompt string) (string, error) {
	resp, err := e.model.Generate(ctx, einoMessages(system, history, prompt))
	if err != nil {
		return "", fmt.Errorf("chat model generate failed: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}

func einoMessages(system string, history []domain.Turn, prompt string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	for _, t := range history {
		if t.Role == domain.RoleAssistant {
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
			continue
		}
		msgs = append(msgs, schema.UserMessage(t.Content))
	}
	return append(msgs, schema.UserMessage(prompt))
}
