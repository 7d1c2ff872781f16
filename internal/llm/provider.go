// Package llm talks to the hosted language models that write report
// narratives. Providers are interchangeable behind Provider; Completer is
// the narrow surface the synthesiser uses.
package llm

import (
	"context"
	"encoding/json"
)

// Provider runs one single-turn generation.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is one system prompt plus one user prompt. Narratives never need
// a conversation history.
type Request struct {
	System string
	Prompt string
	// Schema, when set, asks for JSON output and the response is validated
	// against it. Without a schema the content is plain text.
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Schema is a named JSON Schema for structured output.
type Schema struct {
	// Name is kebab-case; providers use it as the format name.
	Name        string
	Description string
	Definition  map[string]any
}

// StopReason is why a provider stopped generating, normalised across
// providers.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
)

// Response is the provider output.
type Response struct {
	// Content is validated JSON when the request had a schema, the raw text
	// otherwise.
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason StopReason
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total is input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// finish validates content against the request schema and builds the
// response shared by every provider.
func finish(req Request, content json.RawMessage, usage Usage, model string, stop StopReason) (*Response, error) {
	if err := validateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}

// resolveModel maps a short alias to a provider model id. Unknown names are
// passed through as ids.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
