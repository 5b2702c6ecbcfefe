package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var history = []domain.Turn{
	{Role: domain.RoleUser, Content: "me corté un dedo"},
	{Role: domain.RoleAssistant, Content: "¿La herida sangra abundantemente?"},
}

type fakeModel struct {
	got   []*schema.Message
	reply string
	err   error
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestEino_Complete(t *testing.T) {
	fm := &fakeModel{reply: "Aplica presión firme sobre la herida."}
	c := NewEinoFromModel(fm)

	out, err := c.Complete(context.Background(), "sys", history, "sí")
	require.NoError(t, err)
	assert.Equal(t, "Aplica presión firme sobre la herida.", out)

	require.Len(t, fm.got, 4)
	assert.Equal(t, schema.System, fm.got[0].Role)
	assert.Equal(t, schema.User, fm.got[1].Role)
	assert.Equal(t, schema.Assistant, fm.got[2].Role)
	assert.Equal(t, "sí", fm.got[3].Content)
}

func TestEino_CompleteError(t *testing.T) {
	c := NewEinoFromModel(&fakeModel{err: errors.New("quota exceeded")})

	_, err := c.Complete(context.Background(), "", nil, "hola")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestEinoMessages_NoSystem(t *testing.T) {
	msgs := einoMessages("", nil, "hola")
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.User, msgs[0].Role)
}

func TestOpenAI_Complete(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Lava la herida con agua."},
			}},
		})
	}))
	defer srv.Close()

	c := NewOpenAI(Config{APIKey: "key", BaseURL: srv.URL, Model: "test-model"})
	out, err := c.Complete(context.Background(), "sys", history, "no")
	require.NoError(t, err)
	assert.Equal(t, "Lava la herida con agua.", out)

	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	assert.Equal(t, "no", req.Messages[3].Content)
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOpenAI(Config{APIKey: "key", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "", nil, "hola")
	assert.Error(t, err)
}

func TestConfig_DefaultModel(t *testing.T) {
	assert.Equal(t, DefaultModel, Config{}.model())
	assert.Equal(t, "x", Config{Model: "x"}.model())
}
