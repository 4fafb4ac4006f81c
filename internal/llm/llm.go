package llm

import (
	"net/http"

	"github.com/comigor/wrestlingai/internal/config"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates an OpenAI-compatible client bound to the configured base URL.
// Every request carries the configured attribution headers and is bounded by cfg.Timeout.
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = NewHTTPClient(cfg)

	return openai.NewClientWithConfig(config)
}

// NewHTTPClient returns the HTTP client used for upstream calls.
func NewHTTPClient(cfg config.LLMConfig) *http.Client {
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &headerTransport{headers: cfg.Headers, base: http.DefaultTransport},
	}
}

// headerTransport stamps static headers on every outgoing request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
