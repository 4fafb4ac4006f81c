package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// APIKeyEnv is the environment variable holding the OpenRouter API key.
	APIKeyEnv = "OPENROUTER_API_KEY"

	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "deepseek/deepseek-r1:free"
	DefaultMaxTokens   = 1000
	DefaultTemperature = float32(0.7)
	DefaultTimeout     = 60 * time.Second

	DefaultReferer = "https://github.com/comigor/wrestlingai"
	DefaultTitle   = "WrestlingAI Project"
)

// Config holds the application configuration
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Server  ServerConfig  `mapstructure:"server"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// LLMConfig holds the upstream chat-completion configuration.
// Temperature is a pointer because 0 is a valid setting distinct from unset.
type LLMConfig struct {
	BaseURL     string            `mapstructure:"base_url"`
	APIKey      string            `mapstructure:"api_key"`
	Model       string            `mapstructure:"model"`
	MaxTokens   int               `mapstructure:"max_tokens"`
	Temperature *float32          `mapstructure:"temperature"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Headers     map[string]string `mapstructure:"headers"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// HistoryConfig holds the exchange journal configuration. An empty path disables it.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ConfigurationError reports a setting that must be present before any request is issued.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ErrMissing is wrapped by ConfigurationError when a required value is absent.
var ErrMissing = errors.New("not set")

// Validate checks that the settings required to reach the upstream service are present.
func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &ConfigurationError{Key: APIKeyEnv, Err: ErrMissing}
	}
	return nil
}

// WithDefaults fills unset fields with the built-in values. The API key is left untouched.
func (c LLMConfig) WithDefaults() LLMConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	t := DefaultTemperature
	if c.Temperature != nil {
		t = *c.Temperature
	}
	c.Temperature = &t
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.Headers = MergeHeaders(c.Headers)
	return c
}

// Default returns the built-in configuration. It carries no API key.
func Default() Config {
	temperature := DefaultTemperature
	return Config{
		LLM: LLMConfig{
			BaseURL:     DefaultBaseURL,
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: &temperature,
			Timeout:     DefaultTimeout,
			Headers:     DefaultHeaders(),
		},
		Server: ServerConfig{Host: "127.0.0.1", Port: "8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// DefaultHeaders returns the attribution headers OpenRouter asks callers to send.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"HTTP-Referer": DefaultReferer,
		"X-Title":      DefaultTitle,
	}
}

// MergeHeaders overlays configured on top of DefaultHeaders. Keys are compared
// case-insensitively since viper lower-cases map keys read from files.
func MergeHeaders(configured map[string]string) map[string]string {
	out := DefaultHeaders()
	for k, v := range configured {
		for d := range out {
			if strings.EqualFold(d, k) {
				delete(out, d)
			}
		}
		out[k] = v
	}
	return out
}

// Load resolves the configuration from defaults, an optional YAML file, a .env file
// and the environment, in increasing order of precedence.
//
// The YAML file is taken from CONFIG_PATH or, failing that, ./config.yaml when it exists.
// Load fails with a *ConfigurationError when no API key can be found.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("wrestlingai")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", APIKeyEnv); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.LLM.Headers = MergeHeaders(config.LLM.Headers)

	if err := config.LLM.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", *d.LLM.Temperature)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("history.path", "")
	v.SetDefault("log.level", d.Log.Level)
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
