package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})

	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, _ := json.Marshal(Alias(*p))
	_ = json.Unmarshal(stdJSON, &data)

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// NewError creates a generic Problem
func NewError(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank", // Default as per RFC
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithType sets the RFC "type" URI
func WithType(uri string) ProblemOption {
	return func(p *Problem) {
		p.Type = uri
	}
}

// ValidationError creates a rich validation error
func ValidationError(validationErrors map[string]string) *Problem {
	return NewError(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("errors", validationErrors),
	)
}

// BadRequestError creates a standard error for a bad request
func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return NewError(http.StatusBadRequest, "Bad Request", detail, opts...)
}

// UnauthorizedError creates a 401 unauthed error
func UnauthorizedError(detail string) *Problem {
	return NewError(http.StatusUnauthorized, "Unauthorized", detail)
}

// InternalError creates a standard error for any internal server error
func InternalError(detail string, err error) *Problem {
	return NewError(http.StatusInternalServerError, "Internal Server Error", detail, WithLog(err))
}

// RateLimitError creates the 429 rejection for the fixed-window gate.
// retryAfter is surfaced both as an extension and usable for the Retry-After header.
func RateLimitError(retryAfter int) *Problem {
	return NewError(
		http.StatusTooManyRequests,
		"Rate Limit Exceeded",
		fmt.Sprintf("Too many requests. Retry in %d seconds.", retryAfter),
		WithExtension("retry_after_seconds", retryAfter),
	)
}

// QuotaExceededError names the daily ceiling that was hit so the caller
// knows which dimension to act on.
func QuotaExceededError(dimension string) *Problem {
	return NewError(
		http.StatusForbidden,
		"Quota Exceeded",
		fmt.Sprintf("Daily %s quota exhausted. Resets at midnight UTC.", dimension),
		WithExtension("dimension", dimension),
	)
}

// ProviderUnavailableError is the fail-closed resolution error: the selected
// provider is unknown, disabled, or missing credentials.
func ProviderUnavailableError(provider string) *Problem {
	return NewError(
		http.StatusServiceUnavailable,
		"Provider Unavailable",
		fmt.Sprintf("Provider '%s' is not available for dispatch.", provider),
		WithExtension("provider", provider),
	)
}

// ProviderFailedError surfaces an upstream invocation failure after the
// orchestrator has exhausted its retry budget (or immediately for
// permanent errors).
func ProviderFailedError(provider string, transient bool, err error) *Problem {
	return NewError(
		http.StatusBadGateway,
		"Provider Request Failed",
		fmt.Sprintf("Provider '%s' failed to complete the request.", provider),
		WithExtension("provider", provider),
		WithExtension("transient", transient),
		WithLog(err),
	)
}
