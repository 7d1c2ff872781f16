package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrEmptyCompletion is returned when the provider answered with no text.
var ErrEmptyCompletion = errors.New("LLM returned an empty completion")

// Completer is the narrow text-completion surface the narrative synthesiser
// depends on. Implementations make a single attempt bounded by timeout.
type Completer interface {
	Complete(ctx context.Context, system, user string, timeout time.Duration) (string, error)

	// CompleteJSON asks for output conforming to schema and returns the
	// validated JSON.
	CompleteJSON(ctx context.Context, system, user string, schema *Schema, timeout time.Duration) (json.RawMessage, error)
}

// ProviderCompleter adapts a Provider to Completer.
type ProviderCompleter struct {
	provider    Provider
	maxTokens   int
	temperature float64
}

// NewCompleter wraps p. maxTokens <= 0 selects 2048.
func NewCompleter(p Provider, maxTokens int) *ProviderCompleter {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &ProviderCompleter{provider: p, maxTokens: maxTokens, temperature: 0.4}
}

func (c *ProviderCompleter) request(system, user string, schema *Schema) Request {
	return Request{
		System:      system,
		Prompt:      user,
		Schema:      schema,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
}

func (c *ProviderCompleter) Complete(ctx context.Context, system, user string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.provider.Generate(ctx, c.request(system, user, nil))
	if err != nil {
		return "", err
	}
	if resp.StopReason == StopMaxTokens {
		return "", &ErrMaxTokensExceeded{Content: resp.Content}
	}
	text := strings.TrimSpace(string(resp.Content))
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *ProviderCompleter) CompleteJSON(ctx context.Context, system, user string, schema *Schema, timeout time.Duration) (json.RawMessage, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.provider.Generate(ctx, c.request(system, user, schema))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(resp.Content))) == 0 {
		return nil, ErrEmptyCompletion
	}
	return resp.Content, nil
}

// ModelID reports the wrapped provider's model.
func (c *ProviderCompleter) ModelID() string {
	return c.provider.ModelID()
}
