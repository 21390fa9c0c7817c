package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainreact/internal/config"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
)

func TestFakeClientScript(t *testing.T) {
	fake := NewFakeClient("first", "second")

	resp, err := fake.Complete(context.Background(), CompletionRequest{User: "one"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)
	assert.Greater(t, resp.Usage.TotalTokens, 0)

	resp, err = fake.Complete(context.Background(), CompletionRequest{User: "two"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	// Script exhausted: the last response repeats.
	resp, err = fake.Complete(context.Background(), CompletionRequest{User: "three"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	assert.Equal(t, 3, fake.Calls())
	requests := fake.Requests()
	require.Len(t, requests, 3)
	assert.Equal(t, "one", requests[0].User)
	assert.Equal(t, "three", requests[2].User)
}

func TestFakeClientErrors(t *testing.T) {
	t.Run("configured error wins", func(t *testing.T) {
		fake := NewFakeClient("unused")
		fake.Err = errors.New(errors.ErrorTypeExternal, errors.CodeRateLimit, "429 too many requests")

		_, err := fake.Complete(context.Background(), CompletionRequest{User: "x"})
		require.Error(t, err)
		assert.Equal(t, errors.CodeRateLimit, errors.GetAppError(err).Code)
		assert.Equal(t, 1, fake.Calls())
	})

	t.Run("empty script errors", func(t *testing.T) {
		_, err := NewFakeClient().Complete(context.Background(), CompletionRequest{User: "x"})
		require.Error(t, err)
		assert.Equal(t, errors.CodeEmptyCompletion, errors.GetAppError(err).Code)
	})
}

func TestOpenAIClientName(t *testing.T) {
	log := logger.New("test")

	named := NewOpenAIClient(&config.AIConfig{Provider: "azure-openai", APIKey: "k"}, log, nil)
	assert.Equal(t, "azure-openai", named.Name())

	unnamed := NewOpenAIClient(&config.AIConfig{APIKey: "k", BaseURL: "http://localhost:11434/v1"}, log, nil)
	assert.Equal(t, "openai", unnamed.Name())
}
