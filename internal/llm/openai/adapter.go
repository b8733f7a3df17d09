package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/promptforge/optimizer-api/internal/config"
	"github.com/promptforge/optimizer-api/internal/httpclient"
	"github.com/promptforge/optimizer-api/internal/llm"
)

func init() {
	llm.Register("openai", NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *Adapter) Name() string {
	return a.config.Name
}

func (a *Adapter) Type() string {
	return "openai"
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Invoke calls the chat completions endpoint.
// Token accounting: usage.total_tokens, native OpenAI BPE tokens
// (prompt + completion).
func (a *Adapter) Invoke(ctx context.Context, req *llm.InvokeRequest) (*llm.InvokeResult, error) {
	body := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: req.Prompt})

	headers := map[string]string{
		"Authorization": "Bearer " + a.config.APIKey,
	}
	if org, ok := a.config.Config["organization"]; ok {
		headers["OpenAI-Organization"] = org
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.config.BaseURL, "/"))

	var resp chatResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, headers, body, &resp); err != nil {
		return nil, llm.Classify(a.config.Name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, llm.Classify(a.config.Name, fmt.Errorf("empty choices in response %s", resp.ID))
	}

	return &llm.InvokeResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
