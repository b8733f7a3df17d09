package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClient is the minimal client contract, satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpstreamError carries the raw response of a non-2xx upstream reply so
// adapters can classify and surface it.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.URL, e.StatusCode, string(e.Body))
}

// SendRequest handles the common logic of creating a JSON request, sending it,
// and decoding the response. Non-2xx replies return an *UpstreamError.
func SendRequest(ctx context.Context, client HTTPClient, method, url string, headers map[string]string, body interface{}, response interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			URL:        url,
		}
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
