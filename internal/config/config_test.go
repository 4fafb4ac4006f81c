package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
llm:
  base_url: https://api.example.com/v1
  model: mistral/mistral-7b
  max_tokens: 256
  temperature: 0.2
  timeout: 15s
  headers:
    X-Title: Ring Side
server:
  host: 0.0.0.0
  port: "9090"
history:
  path: /tmp/history.db
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(body); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()
	return tmp.Name()
}

// TestLoad_File verifies that Load unmarshals every section of the YAML file.
func TestLoad_File(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv(APIKeyEnv, "sk-or-test")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "sk-or-test", cfg.LLM.APIKey)
	require.Equal(t, "https://api.example.com/v1", cfg.LLM.BaseURL)
	require.Equal(t, "mistral/mistral-7b", cfg.LLM.Model)
	require.Equal(t, 256, cfg.LLM.MaxTokens)
	require.NotNil(t, cfg.LLM.Temperature)
	require.InDelta(t, 0.2, *cfg.LLM.Temperature, 1e-6)
	require.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	// viper lower-cases map keys; header names are case-insensitive on the wire.
	require.Equal(t, "Ring Side", cfg.LLM.Headers["x-title"])
	require.NotContains(t, cfg.LLM.Headers, "X-Title")
	require.Equal(t, DefaultReferer, cfg.LLM.Headers["HTTP-Referer"])
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "/tmp/history.db", cfg.History.Path)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv(APIKeyEnv, "sk-or-test")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, DefaultBaseURL, cfg.LLM.BaseURL)
	require.Equal(t, DefaultModel, cfg.LLM.Model)
	require.Equal(t, DefaultMaxTokens, cfg.LLM.MaxTokens)
	require.NotNil(t, cfg.LLM.Temperature)
	require.InDelta(t, 0.7, *cfg.LLM.Temperature, 1e-6)
	require.Equal(t, DefaultTimeout, cfg.LLM.Timeout)
	require.Equal(t, DefaultHeaders(), cfg.LLM.Headers)
	require.Empty(t, cfg.History.Path)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv(APIKeyEnv, "sk-or-test")
	t.Setenv("WRESTLINGAI_LLM_MODEL", "openai/gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o-mini", cfg.LLM.Model)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv(APIKeyEnv, "")

	cfg, err := Load()
	require.Nil(t, cfg)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, APIKeyEnv, cfgErr.Key)
	require.True(t, errors.Is(err, ErrMissing))
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/does/not/exist.yaml")
	t.Setenv(APIKeyEnv, "sk-or-test")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default().LLM
	require.Error(t, cfg.Validate())

	cfg.APIKey = "   "
	require.Error(t, cfg.Validate())

	cfg.APIKey = "sk-or-test"
	require.NoError(t, cfg.Validate())
}

func TestWithDefaults(t *testing.T) {
	cfg := LLMConfig{APIKey: "k", Model: "custom/model"}.WithDefaults()

	require.Equal(t, "k", cfg.APIKey)
	require.Equal(t, "custom/model", cfg.Model)
	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	require.Equal(t, DefaultTemperature, *cfg.Temperature)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultHeaders(), cfg.Headers)
}

func TestLoad_ZeroTemperatureKept(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "llm:\n  temperature: 0\n"))
	t.Setenv(APIKeyEnv, "sk-or-test")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	require.Zero(t, *cfg.LLM.Temperature)

	llm := cfg.LLM.WithDefaults()
	require.Zero(t, *llm.Temperature)
}

func TestMergeHeaders(t *testing.T) {
	require.Equal(t, DefaultHeaders(), MergeHeaders(nil))

	got := MergeHeaders(map[string]string{"x-title": "Ring Side", "X-Extra": "1"})
	require.Equal(t, map[string]string{
		"HTTP-Referer": DefaultReferer,
		"x-title":      "Ring Side",
		"X-Extra":      "1",
	}, got)

	got = MergeHeaders(map[string]string{"http-referer": "https://example.com"})
	require.Equal(t, "https://example.com", got["http-referer"])
	require.Equal(t, DefaultTitle, got["X-Title"])
	require.Len(t, got, 2)
}

func TestWithDefaults_MergesHeaders(t *testing.T) {
	cfg := LLMConfig{APIKey: "k", Headers: map[string]string{"X-Title": "Ring Side"}}.WithDefaults()
	require.Equal(t, DefaultReferer, cfg.Headers["HTTP-Referer"])
	require.Equal(t, "Ring Side", cfg.Headers["X-Title"])
}
