package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// ProviderSettings are the credentials and model of one provider.
type ProviderSettings struct {
	APIKey string
	// Model is a provider model id or one of the short aliases.
	Model string
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
}

// Config selects a provider and carries the settings of each.
type Config struct {
	Provider string

	Anthropic  ProviderSettings
	OpenAI     ProviderSettings
	Gemini     ProviderSettings
	OpenRouter ProviderSettings

	Retry RetryConfig
	// Timeout bounds one completion.
	Timeout time.Duration
}

// RetryConfig enables retries of transient failures when MaxAttempts > 1.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultConfig uses Anthropic with one attempt per narrative: a failed
// narrative falls back to the template text.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  ProviderSettings{Model: "claude-haiku"},
		OpenAI:     ProviderSettings{Model: "gpt-mini"},
		Gemini:     ProviderSettings{Model: "gemini-flash"},
		OpenRouter: ProviderSettings{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: time.Second,
			MaxWait:     8 * time.Second,
		},
		Timeout: 30 * time.Second,
	}
}

// Settings returns the section of the selected provider, or nil for the
// mock and unknown providers.
func (c *Config) Settings() *ProviderSettings {
	switch c.Provider {
	case ProviderAnthropic:
		return &c.Anthropic
	case ProviderOpenAI:
		return &c.OpenAI
	case ProviderGemini:
		return &c.Gemini
	case ProviderOpenRouter:
		return &c.OpenRouter
	}
	return nil
}

// APIKey is the key of the selected provider.
func (c Config) APIKey() string {
	if s := c.Settings(); s != nil {
		return s.APIKey
	}
	return ""
}

// WithCredentials returns a copy of c switched to provider (when non-empty)
// with the key, base URL and model (when non-empty) applied to it.
func (c Config) WithCredentials(provider, model, apiKey, baseURL string) Config {
	if provider != "" {
		c.Provider = provider
	}
	if s := c.Settings(); s != nil {
		s.APIKey = apiKey
		s.BaseURL = baseURL
		if model != "" {
			s.Model = model
		}
	}
	return c
}

// envKeys is the order the standard key variables are probed in.
var envKeys = []struct{ provider, env string }{
	{ProviderGemini, "GEMINI_API_KEY"},
	{ProviderOpenAI, "OPENAI_API_KEY"},
	{ProviderAnthropic, "ANTHROPIC_API_KEY"},
	{ProviderOpenRouter, "OPENROUTER_API_KEY"},
}

// DiscoverConfig picks the first provider whose standard API key variable
// is set.
func DiscoverConfig() (Config, bool) {
	for _, k := range envKeys {
		if key := os.Getenv(k.env); key != "" {
			cfg := DefaultConfig()
			cfg.Provider = k.provider
			cfg.Settings().APIKey = key
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks the provider name and that it has a key.
func (c Config) Validate() error {
	if c.Provider == ProviderMock {
		return nil
	}
	s := c.Settings()
	if s == nil {
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if s.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for the %s provider", c.Provider)
	}
	return nil
}
