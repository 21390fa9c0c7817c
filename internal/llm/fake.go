package llm

import (
	"context"
	"sync"

	"chainreact/pkg/errors"
)

// FakeClient is a scripted Client for tests. Each Complete call returns the
// next canned response, repeating the last one once the script runs out, and
// records the request it received.
type FakeClient struct {
	mu        sync.Mutex
	responses []string
	requests  []CompletionRequest
	calls     int

	// Err, when set, is returned by every Complete call.
	Err error
}

func NewFakeClient(responses ...string) *FakeClient {
	return &FakeClient{responses: responses}
}

func (f *FakeClient) Name() string { return "fake" }

func (f *FakeClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.requests = append(f.requests, req)
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.responses) == 0 {
		return nil, errors.New(errors.ErrorTypeExternal, errors.CodeEmptyCompletion, "fake client has no scripted responses")
	}

	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}

	content := f.responses[idx]
	return &CompletionResponse{
		Content: content,
		Model:   "fake-model",
		Usage: Usage{
			PromptTokens:     len(req.System)/4 + len(req.User)/4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(req.System) + len(req.User) + len(content)) / 4,
		},
	}, nil
}

// Requests returns a copy of every request Complete has received.
func (f *FakeClient) Requests() []CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CompletionRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Calls reports how many times Complete has been invoked.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
