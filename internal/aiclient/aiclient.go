// Package aiclient turns a single prompt into one OpenRouter chat completion.
//
// A Client holds immutable configuration only, so one instance may serve concurrent
// callers. Each GenerateResponse call issues exactly one upstream request; there is
// no retry, no fallback model and no caching.
package aiclient

import (
	"context"
	"log/slog"
	"math"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/wrestlingai/internal/config"
	"github.com/comigor/wrestlingai/internal/llm"
	"github.com/comigor/wrestlingai/internal/logger"
)

// Client is the OpenRouter adapter.
type Client struct {
	llmClient llm.Client
	cfg       config.LLMConfig
	log       *slog.Logger
}

// Option customises a Client at construction.
type Option func(*Client)

// WithLLM replaces the upstream client, typically with a mock.
func WithLLM(c llm.Client) Option {
	return func(a *Client) { a.llmClient = c }
}

// WithLogger sets the logger used to report failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(a *Client) { a.log = l }
}

// New creates a Client. It fails with a *config.ConfigurationError when no API key is
// configured; nothing is sent upstream in that case.
func New(cfg config.LLMConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg: cfg.WithDefaults(),
		log: logger.L,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.llmClient == nil {
		c.llmClient = llm.NewClient(c.cfg)
	}

	return c, nil
}

// Config returns the resolved configuration the client was built with.
func (c *Client) Config() config.LLMConfig { return c.cfg }

// Options overrides the configured defaults for one call. Zero values keep the default;
// Temperature is a pointer so that an explicit 0 can be told apart from unset.
type Options struct {
	Model       string   // default deepseek/deepseek-r1:free
	MaxTokens   int      // default 1000
	Temperature *float32 // default 0.7
}

// Float32 returns a pointer to v, for Options.Temperature.
func Float32(v float32) *float32 { return &v }

// Usage reports the token accounting of a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the simplified completion record handed back to callers.
type Response struct {
	ID               string `json:"id,omitempty"`
	Model            string `json:"model"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
	FinishReason     string `json:"finish_reason,omitempty"`
	Usage            Usage  `json:"usage"`
}

// GenerateResponse sends prompt as a single user message and returns the first choice.
// Out-of-range parameters are forwarded as-is; the upstream service decides validity.
// Every failure is logged once and returned as a *RequestError.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, opts Options) (*Response, error) {
	return c.run(ctx, c.buildRequest(prompt, opts))
}

func (c *Client) buildRequest(prompt string, opts Options) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: *c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.MaxTokens != 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	// go-openai drops a zero temperature from the JSON body.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	return req
}

func toResponse(resp openai.ChatCompletionResponse) (*Response, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return nil, ErrEmptyContent
	}
	return &Response{
		ID:               resp.ID,
		Model:            resp.Model,
		Content:          choice.Message.Content,
		ReasoningContent: choice.Message.ReasoningContent,
		FinishReason:     string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
