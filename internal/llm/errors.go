package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/promptforge/optimizer-api/internal/httpclient"
)

// ErrorKind splits invocation failures into the two classes the orchestrator
// cares about: Transient errors are eligible for retry, Permanent ones never are.
type ErrorKind int

const (
	Transient ErrorKind = iota
	Permanent
)

func (k ErrorKind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "transient"
}

// Error is the tagged invocation error returned by every adapter.
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int // 0 when the failure never reached the upstream
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps a raw adapter failure with its retry class.
//
// Upstream 408/429/5xx and anything that never produced an upstream reply
// (timeouts, connection resets) are Transient. Remaining 4xx replies are
// Permanent: bad request, auth failure, content policy.
func Classify(provider string, err error) *Error {
	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		kind := Permanent
		switch {
		case upstream.StatusCode == http.StatusRequestTimeout,
			upstream.StatusCode == http.StatusTooManyRequests,
			upstream.StatusCode >= 500:
			kind = Transient
		}
		return &Error{Kind: kind, Provider: provider, StatusCode: upstream.StatusCode, Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: Permanent, Provider: provider, Err: err}
	}

	// Network failures, deadline exceeded, partial reads
	return &Error{Kind: Transient, Provider: provider, Err: err}
}

// IsTransient reports whether the orchestrator may retry this failure.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == Transient
}
