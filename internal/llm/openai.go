package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"chainreact/internal/config"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"
	"chainreact/pkg/retry"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
// A custom BaseURL routes the same client at self-hosted gateways.
type OpenAIClient struct {
	client  *openai.Client
	config  *config.AIConfig
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewOpenAIClient builds a client from the AI section of the service
// configuration. The metrics handle may be nil in tests.
func NewOpenAIClient(cfg *config.AIConfig, log logger.Logger, m *metrics.Metrics) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		logger:  log,
		metrics: m,
	}
}

// Name identifies the provider in logs and generation records.
func (c *OpenAIClient) Name() string {
	if c.config.Provider != "" {
		return c.config.Provider
	}
	return "openai"
}

// Complete runs one chat completion with bounded retries. Rate limit
// responses are retried with backoff; other provider failures surface
// immediately as external errors with the cause preserved.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.config.DefaultModel
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.config.Temperature
	}

	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if len(req.ResponseSchema) > 0 {
		name := req.ResponseName
		if name == "" {
			name = "response"
		}
		// Strict mode is off: the workflow schema keeps node config as an
		// open object, which strict structured outputs reject.
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: req.ResponseSchema,
				Strict: false,
			},
		}
	}

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := retry.RetryLLM(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			c.logger.Warn("Retrying chat completion", "model", model, "attempt", attempt)
			if c.metrics != nil {
				c.metrics.RecordLLMRetry(model, "rate_limit_or_transient")
			}
		}
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	duration := time.Since(start)

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordLLMRequest(model, "error", duration)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeLLMCompletion, "chat completion failed")
	}

	if len(resp.Choices) == 0 {
		if c.metrics != nil {
			c.metrics.RecordLLMRequest(model, "empty", duration)
		}
		return nil, errors.New(errors.ErrorTypeExternal, errors.CodeEmptyCompletion, "model returned no completion choices")
	}

	if c.metrics != nil {
		c.metrics.RecordLLMRequest(model, "success", duration)
		c.metrics.RecordLLMTokens(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	c.logger.Debug("Chat completion finished",
		"model", model,
		"duration_ms", duration.Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
