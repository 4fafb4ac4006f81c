package aiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Kind narrows down why a request failed. Callers that only care about success can
// treat every *RequestError alike.
type Kind int

const (
	KindTransport Kind = iota // network failure, timeout, cancellation
	KindAuth                  // upstream rejected the API key (401/403)
	KindRateLimit             // upstream throttled the caller (429)
	KindUpstream              // any other non-2xx status
	KindMalformed             // success status without usable content
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindUpstream:
		return "upstream"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RequestError is returned by GenerateResponse for every failure of the outbound call.
type RequestError struct {
	Kind       Kind
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("aiclient: %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("aiclient: %s error: %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

var (
	// ErrNoChoices is wrapped when the upstream reply carries no choices.
	ErrNoChoices = errors.New("response has no choices")
	// ErrEmptyContent is wrapped when the first choice has no generated text.
	ErrEmptyContent = errors.New("response content is empty")
)

// newRequestError classifies err as returned by the go-openai client.
func newRequestError(err error) *RequestError {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
		status int
	)
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	kind := KindTransport
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindTransport
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusTooManyRequests:
		kind = KindRateLimit
	case status != 0:
		kind = KindUpstream
	}

	return &RequestError{Kind: kind, StatusCode: status, Err: err}
}
