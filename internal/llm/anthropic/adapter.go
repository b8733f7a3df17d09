package anthropic

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
	llm.Register("anthropic", NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *Adapter) Name() string { return a.config.Name }
func (a *Adapter) Type() string { return "anthropic" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Invoke calls the messages endpoint.
// Token accounting: usage.input_tokens + usage.output_tokens, native
// Anthropic tokens. The API reports no combined total.
func (a *Adapter) Invoke(ctx context.Context, req *llm.InvokeRequest) (*llm.InvokeResult, error) {
	body := messagesRequest{
		Model:       req.Model,
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = 4096
	}

	headers := map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if v, ok := a.config.Config["version"]; ok {
		headers["anthropic-version"] = v
	}

	url := fmt.Sprintf("%s/messages", strings.TrimRight(a.config.BaseURL, "/"))

	var resp messagesResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, headers, body, &resp); err != nil {
		return nil, llm.Classify(a.config.Name, err)
	}

	fullText := ""
	for _, c := range resp.Content {
		if c.Type == "text" {
			fullText += c.Text
		}
	}

	return &llm.InvokeResult{
		Text:       fullText,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
