package llm

import (
	"context"
	"encoding/json"
)

// CompletionRequest describes a single chat completion call. ResponseSchema,
// when set, is forwarded to the provider as a JSON schema response format so
// the model is constrained to emit a parseable document.
type CompletionRequest struct {
	System         string
	User           string
	Model          string
	Temperature    float32
	ResponseSchema json.RawMessage
	ResponseName   string
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// CompletionResponse carries the first choice returned by the provider.
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Client is the minimal surface the generation pipeline needs from a
// language model provider.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}
