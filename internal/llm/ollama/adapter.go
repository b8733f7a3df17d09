package ollama

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
	llm.Register("ollama", NewAdapter)
}

// Adapter talks to a local Ollama daemon. No credentials required.
type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	return &Adapter{
		config: config,
		// Local models can be slow to load on first request
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *Adapter) Name() string { return a.config.Name }
func (a *Adapter) Type() string { return "ollama" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message         message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// Invoke calls the /api/chat endpoint with streaming disabled.
// Token accounting: prompt_eval_count + eval_count, Ollama's native
// evaluation counts (model-tokenizer dependent).
func (a *Adapter) Invoke(ctx context.Context, req *llm.InvokeRequest) (*llm.InvokeResult, error) {
	body := chatRequest{
		Model:  req.Model,
		Stream: false,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: req.Prompt})

	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.Options = map[string]any{}
		if req.MaxTokens > 0 {
			body.Options["num_predict"] = req.MaxTokens
		}
		if req.Temperature > 0 {
			body.Options["temperature"] = req.Temperature
		}
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimRight(a.config.BaseURL, "/"))

	var resp chatResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, nil, body, &resp); err != nil {
		return nil, llm.Classify(a.config.Name, err)
	}

	return &llm.InvokeResult{
		Text:       resp.Message.Content,
		TokensUsed: resp.PromptEvalCount + resp.EvalCount,
	}, nil
}
