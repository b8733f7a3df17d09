package google_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/optimizer-api/internal/config"
	"github.com/promptforge/optimizer-api/internal/llm"
	"github.com/promptforge/optimizer-api/internal/llm/google"
)

func TestGoogleInvoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {
					"role": "model",
					"parts": [{"text": "Improved "}, {"text": "prompt."}]
				},
				"finishReason": "STOP"
			}],
			"usageMetadata": {
				"promptTokenCount": 10,
				"candidatesTokenCount": 5,
				"totalTokenCount": 15
			}
		}`))
	}))
	defer server.Close()

	adapter, err := google.NewAdapter(config.ProviderConfig{
		Name:    "google-test",
		Type:    "google",
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	resp, err := adapter.Invoke(context.Background(), &llm.InvokeRequest{
		Model:  "gemini-2.0-flash",
		Prompt: "Improve this prompt.",
	})

	require.NoError(t, err)
	assert.Equal(t, "Improved prompt.", resp.Text)
	assert.Equal(t, 15, resp.TokensUsed)
}

func TestGoogleInvoke_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"candidates": [], "usageMetadata": {"totalTokenCount": 3}}`))
	}))
	defer server.Close()

	adapter, err := google.NewAdapter(config.ProviderConfig{
		Name:    "google-test",
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = adapter.Invoke(context.Background(), &llm.InvokeRequest{
		Model:  "gemini-2.0-flash",
		Prompt: "Hi",
	})
	require.Error(t, err)
}
