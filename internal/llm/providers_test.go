package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var profileSchema = &Schema{
	Name: "profile-summary",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"portrait"},
		"properties": map[string]any{
			"portrait":  map[string]any{"type": "string", "description": "short portrait"},
			"strengths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"level":     map[string]any{"type": "string", "enum": []any{"low", "high"}},
		},
	},
}

// fakeAPI answers every request with status and body and keeps the last
// decoded request body.
func fakeAPI(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = nil
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestAnthropic_Generate(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant",
		"model": "claude-haiku-4-5-20251001",
		"content": [{"type": "text", "text": "Ведущая роль: "}, {"type": "text", "text": "Производитель."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 40, "output_tokens": 6}
	}`)

	p, err := NewAnthropicProvider(ProviderSettings{APIKey: "k", Model: "claude-haiku", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", p.ModelID())

	resp, err := p.Generate(context.Background(), Request{System: "sys", Prompt: "P: 8/10", MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Ведущая роль: Производитель.", string(resp.Content))
	assert.Equal(t, Usage{InputTokens: 40, OutputTokens: 6}, resp.Usage)
	assert.Equal(t, StopEnd, resp.StopReason)

	assert.Equal(t, "claude-haiku-4-5-20251001", (*got)["model"])
	assert.EqualValues(t, 300, (*got)["max_tokens"])
}

func TestAnthropic_MaxTokens(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-haiku-4-5-20251001",
		"content": [{"type": "text", "text": "Обрыв"}],
		"stop_reason": "max_tokens",
		"usage": {"input_tokens": 1, "output_tokens": 1}
	}`)
	p, err := NewAnthropicProvider(ProviderSettings{APIKey: "k", Model: "claude-haiku", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{Prompt: "x", MaxTokens: 1})
	require.NoError(t, err)
	assert.Equal(t, StopMaxTokens, resp.StopReason)
}

func TestAnthropic_ServerError(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusBadRequest, `{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`)
	p, err := NewAnthropicProvider(ProviderSettings{APIKey: "k", Model: "claude-haiku", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "x", MaxTokens: 10})
	var un *ErrProviderUnavailable
	assert.ErrorAs(t, err, &un)
}

func TestAnthropic_NeedsKey(t *testing.T) {
	_, err := NewAnthropicProvider(ProviderSettings{Model: "claude-haiku"})
	assert.Error(t, err)
}

func openAIBody(content, finish string) string {
	b, _ := json.Marshal(map[string]any{
		"id": "c1", "object": "chat.completion", "model": "gpt-4o-mini-2024-07-18",
		"choices": []any{map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
	})
	return string(b)
}

func TestOpenAI_GenerateWithSchema(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, openAIBody(`{"portrait":"Портрет."}`, "stop"))
	p, err := NewOpenAIProvider(ProviderSettings{APIKey: "k", Model: "gpt-mini", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())

	resp, err := p.Generate(context.Background(), Request{System: "sys", Prompt: "u", Schema: profileSchema, MaxTokens: 100})
	require.NoError(t, err)
	assert.JSONEq(t, `{"portrait":"Портрет."}`, string(resp.Content))
	assert.Equal(t, "gpt-4o-mini-2024-07-18", resp.Model)
	assert.Equal(t, 17, resp.Usage.Total())

	msgs := (*got)["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	format := (*got)["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "profile-summary", format["json_schema"].(map[string]any)["name"])
}

func TestOpenAI_SchemaViolation(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, openAIBody(`{"strengths":["a"]}`, "stop"))
	p, err := NewOpenAIProvider(ProviderSettings{APIKey: "k", Model: "gpt-mini", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "u", Schema: profileSchema})
	var inv *ErrInvalidResponse
	require.ErrorAs(t, err, &inv)
	assert.JSONEq(t, `{"strengths":["a"]}`, string(inv.Content))
	assert.False(t, Transient(err))
}

func TestOpenAI_RateLimit(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusTooManyRequests, `{"error": {"message": "slow down", "type": "rate_limit_exceeded"}}`)
	p, err := NewOpenAIProvider(ProviderSettings{APIKey: "k", Model: "gpt-mini", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "u"})
	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)
	assert.True(t, Transient(err))
}

func TestOpenAI_Truncated(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, openAIBody("Обрыв", "length"))
	p, err := NewOpenAIProvider(ProviderSettings{APIKey: "k", Model: "gpt-mini", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{Prompt: "u"})
	require.NoError(t, err)
	assert.Equal(t, StopMaxTokens, resp.StopReason)
}

func TestOpenRouter_DefaultsBaseURL(t *testing.T) {
	p, err := NewOpenRouterProvider(ProviderSettings{APIKey: "k", Model: "google/gemini-2.0-flash-001"})
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-001", p.ModelID())

	_, err = NewOpenRouterProvider(ProviderSettings{})
	assert.Error(t, err)
}

func TestOpenRouter_CustomBaseURL(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, openAIBody("Текст", "stop"))
	p, err := NewOpenRouterProvider(ProviderSettings{APIKey: "k", Model: "anthropic/claude-haiku-4.5", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{Prompt: "u"})
	require.NoError(t, err)
	assert.Equal(t, "Текст", string(resp.Content))
	assert.Equal(t, "anthropic/claude-haiku-4.5", (*got)["model"])
}

func TestGemini_Generate(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"portrait\":\"Портрет.\"}"}]}, "finishReason": "STOP"}],
		"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 4}
	}`)
	p, err := NewGeminiProvider(context.Background(), ProviderSettings{APIKey: "k", Model: "gemini-flash", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", p.ModelID())

	resp, err := p.Generate(context.Background(), Request{System: "sys", Prompt: "u", Schema: profileSchema, MaxTokens: 50})
	require.NoError(t, err)
	assert.JSONEq(t, `{"portrait":"Портрет."}`, string(resp.Content))
	assert.Equal(t, Usage{InputTokens: 9, OutputTokens: 4}, resp.Usage)

	gen := (*got)["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["responseMimeType"])
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(profileSchema.Definition)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"portrait"}, s.Required)
	require.Contains(t, s.Properties, "strengths")
	assert.Equal(t, genai.TypeArray, s.Properties["strengths"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["strengths"].Items.Type)
	assert.Equal(t, "short portrait", s.Properties["portrait"].Description)
	assert.Equal(t, []string{"low", "high"}, s.Properties["level"].Enum)
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiAliases))
	assert.Equal(t, "claude-sonnet-4-20250514", resolveModel("claude-sonnet", anthropicAliases))
	assert.Equal(t, "gpt-4.1", resolveModel("gpt-4.1", openaiAliases))
}
