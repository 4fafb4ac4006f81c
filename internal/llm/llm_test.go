package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comigor/wrestlingai/internal/config"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_SendsAuthAndAttributionHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		assert.Equal(t, config.DefaultReferer, r.Header.Get("HTTP-Referer"))
		assert.Equal(t, config.DefaultTitle, r.Header.Get("X-Title"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "gen-1",
			"model": "deepseek/deepseek-r1:free",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "pong"}},
			},
		})
	}))
	defer srv.Close()

	cfg := config.Default().LLM
	cfg.APIKey = "sk-or-test"
	cfg.BaseURL = srv.URL

	client := NewClient(cfg)
	resp, err := client.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Equal(t, "pong", resp.Choices[0].Message.Content)
}

func TestNewHTTPClient_Timeout(t *testing.T) {
	cfg := config.Default().LLM
	cfg.Timeout = 3 * time.Second

	c := NewHTTPClient(cfg)
	require.Equal(t, 3*time.Second, c.Timeout)
}

func TestHeaderTransport_DoesNotMutateCallerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
	}))
	defer srv.Close()

	c := NewHTTPClient(config.LLMConfig{Headers: map[string]string{"X-Extra": "yes"}})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Empty(t, req.Header.Get("X-Extra"))
}
