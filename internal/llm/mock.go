package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockReply is a canned answer of MockProvider.
type MockReply struct {
	Content string
	Usage   Usage
	Err     error
}

// MockProvider answers by request purpose. Purposes without a reply fail as
// unavailable, so callers take their fallback path. It is the "mock"
// provider of the config and the stand-in of tests.
type MockProvider struct {
	mu      sync.Mutex
	replies map[string]MockReply
	calls   []MockCall
}

// MockCall is one recorded Generate call.
type MockCall struct {
	Purpose string
	Request Request
}

func NewMockProvider() *MockProvider {
	return &MockProvider{replies: make(map[string]MockReply)}
}

// Reply sets the answer for purpose.
func (m *MockProvider) Reply(purpose string, r MockReply) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[purpose] = r
	return m
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Purpose: purpose, Request: req})
	r, ok := m.replies[purpose]
	m.mu.Unlock()

	if !ok {
		return nil, &ErrProviderUnavailable{}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return finish(req, json.RawMessage(r.Content), r.Usage, "mock", StopEnd)
}

// Calls returns the recorded calls in order.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
