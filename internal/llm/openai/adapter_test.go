package openai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/optimizer-api/internal/config"
	"github.com/promptforge/optimizer-api/internal/llm"
	"github.com/promptforge/optimizer-api/internal/llm/openai"
)

func TestOpenAIInvoke(t *testing.T) {
	// Mock Server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "Rewritten prompt here."
				},
				"finish_reason": "stop"
			}],
			"usage": {
				"prompt_tokens": 9,
				"completion_tokens": 12,
				"total_tokens": 21
			}
		}`))

		if err != nil {
			return
		}
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai-test",
		Type:    "openai",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	resp, err := adapter.Invoke(context.Background(), &llm.InvokeRequest{
		Model:  "gpt-4o-mini",
		System: "You are a prompt engineer.",
		Prompt: "Improve this prompt.",
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Rewritten prompt here.", resp.Text)
	assert.Equal(t, 21, resp.TokensUsed)
	assert.Equal(t, "openai-test", adapter.Name())
}

func TestOpenAIInvoke_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream exploded"}}`))
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai-test",
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = adapter.Invoke(context.Background(), &llm.InvokeRequest{
		Model:  "gpt-4o-mini",
		Prompt: "Hi",
	})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
}

func TestOpenAIInvoke_AuthErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai-test",
		APIKey:  "bad-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = adapter.Invoke(context.Background(), &llm.InvokeRequest{
		Model:  "gpt-4o-mini",
		Prompt: "Hi",
	})
	require.Error(t, err)
	assert.False(t, llm.IsTransient(err))
}
