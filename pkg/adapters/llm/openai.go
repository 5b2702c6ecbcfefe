package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/firstaid/pkg/domain"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI is a Completer backed by go-openai.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates the client. An empty BaseURL targets api.openai.com.
func NewOpenAI(cfg Config) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = 0.2
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.model(),
		temperature: temp,
	}
}

// Complete implements ports.Completer.
func (c *OpenAI) Complete(ctx context.Context, system string, history []domain.Turn, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    openaiMessages(system, history, prompt),
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func openaiMessages(system string, history []domain.Turn, prompt string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}
