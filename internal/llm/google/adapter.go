package google

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
	llm.Register("google", NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *Adapter) Name() string { return a.config.Name }
func (a *Adapter) Type() string { return "google" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Invoke calls the generateContent endpoint.
// Token accounting: usageMetadata.totalTokenCount, native Gemini tokens
// (prompt + candidates).
func (a *Adapter) Invoke(ctx context.Context, req *llm.InvokeRequest) (*llm.InvokeResult, error) {
	body := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.Prompt}}},
		},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.GenerationConfig = &generationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		}
	}

	headers := map[string]string{
		"x-goog-api-key": a.config.APIKey,
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(a.config.BaseURL, "/"), req.Model)

	var resp generateResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, headers, body, &resp); err != nil {
		return nil, llm.Classify(a.config.Name, err)
	}

	if len(resp.Candidates) == 0 {
		return nil, llm.Classify(a.config.Name, fmt.Errorf("no candidates returned for model %s", req.Model))
	}

	fullText := ""
	for _, p := range resp.Candidates[0].Content.Parts {
		fullText += p.Text
	}

	return &llm.InvokeResult{
		Text:       fullText,
		TokensUsed: resp.UsageMetadata.TotalTokenCount,
	}, nil
}
