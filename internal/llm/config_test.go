package llm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/profilebot/internal/store"
)

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.EqualError(t, cfg.Validate(), "llm.api_key is required for the anthropic provider")

	cfg.Provider = "cohere"
	assert.EqualError(t, cfg.Validate(), `unknown LLM provider "cohere"`)

	cfg.Provider = ProviderMock
	assert.NoError(t, cfg.Validate())
}

func TestConfig_WithCredentials(t *testing.T) {
	cfg := DefaultConfig().WithCredentials(ProviderOpenRouter, "", "or-key", "")
	assert.Equal(t, ProviderOpenRouter, cfg.Provider)
	assert.Equal(t, "or-key", cfg.APIKey())
	assert.Equal(t, "google/gemini-2.0-flash-001", cfg.OpenRouter.Model)

	cfg = cfg.WithCredentials("", "gpt-4.1", "k2", "http://proxy")
	assert.Equal(t, "gpt-4.1", cfg.OpenRouter.Model)
	assert.Equal(t, "http://proxy", cfg.OpenRouter.BaseURL)
	assert.Empty(t, cfg.Anthropic.APIKey)
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k.env, "")
	}
	_, ok := DiscoverConfig()
	assert.False(t, ok)

	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("OPENAI_API_KEY", "o")
	cfg, ok := DiscoverConfig()
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "o", cfg.APIKey())
}

func TestNewProvider_Wrapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock

	p, err := NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockProvider{}, p)

	cfg.Retry.MaxAttempts = 3
	p, err = NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &RetryProvider{}, p)
	assert.Equal(t, "mock", p.ModelID())

	cfg.Provider = ProviderAnthropic
	_, err = NewProvider(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewProvider_OpenRouter(t *testing.T) {
	cfg := DefaultConfig().WithCredentials(ProviderOpenRouter, "", "k", "")
	p, err := NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-001", p.ModelID())
}

func TestLoggingProvider_RecordsEvent(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "llm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := NewMockProvider().Reply("narrative-disc", MockReply{
		Content: "Профиль",
		Usage:   Usage{InputTokens: 12, OutputTokens: 3},
	})
	p := WithLogging(mock, ProviderMock, s.EventRepo())

	ctx := WithPurpose(context.Background(), "narrative-disc")
	_, err = p.Generate(ctx, Request{System: "sys", Prompt: "D: 10/10"})
	require.NoError(t, err)
	_, err = p.Generate(WithPurpose(context.Background(), "narrative-overall"), Request{Prompt: "x"})
	require.Error(t, err)

	events, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{Purpose: "narrative-disc"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, 12, e.InputTokens)
	assert.True(t, e.Success)
	assert.Equal(t, "[system]\nsys\n\n[user]\nD: 10/10\n", e.RequestBody)
	assert.Equal(t, "Профиль", e.ResponseBody)

	failed, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{Purpose: "narrative-overall"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.False(t, failed[0].Success)
	assert.Equal(t, "LLM provider unavailable", failed[0].ErrorMessage)
}

func TestTranscript_Schema(t *testing.T) {
	got := transcript(Request{Prompt: "u", Schema: &Schema{Name: "s", Definition: map[string]any{"type": "object"}}})
	assert.Equal(t, "[user]\nu\n\n[schema: s]\n{\"type\":\"object\"}\n", got)
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("claude-haiku-4-5-20251001")
	require.NotNil(t, c)
	assert.Equal(t, ModelCost{1, 5}, *c)

	c = LookupCost("openai/gpt-4o-mini-2024-07-18")
	require.NotNil(t, c)
	assert.Equal(t, 0.15, c.InputPerMTok)

	c = LookupCost("gpt-4o-2024-08-06")
	require.NotNil(t, c)
	assert.Equal(t, 2.5, c.InputPerMTok)

	assert.Nil(t, LookupCost("llama-3"))
	assert.InDelta(t, 0.000025, ModelCost{1, 5}.Cost(10, 3), 1e-9)
}
