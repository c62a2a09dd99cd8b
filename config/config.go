package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"story_studio/generator"
)

// Config holds all story studio configuration.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`

	// Model gateway shared by both endpoints
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Per endpoint sampling and fallback text
	Outline EndpointConfig `json:"outline" yaml:"outline"`
	Revise  EndpointConfig `json:"revise" yaml:"revise"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// RequestTimeout bounds each upstream model call, as a Go duration.
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout"`
}

// LLMConfig configures the OpenAI compatible completion endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // openrouter, openai, mock
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model    string `json:"model" yaml:"model"`
	// BaseURL defaults to OpenRouter for the openrouter provider.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Referer string `json:"referer,omitempty" yaml:"referer,omitempty"`
}

type EndpointConfig struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Title       string  `json:"title" yaml:"title"`
	Fallback    string  `json:"fallback" yaml:"fallback"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
	// File enables a rotating JSON log next to the console output.
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// Endpoint names one of the two model calls.
type Endpoint string

const (
	EndpointOutline Endpoint = "outline"
	EndpointRevise  Endpoint = "revise"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: "60s",
		},
		LLM: LLMConfig{
			Provider: "openrouter",
			Model:    "x-ai/grok-4-fast:free",
		},
		Outline: EndpointConfig{
			Temperature: 0.6,
			MaxTokens:   400,
			Title:       "Story Studio - Create Outline",
			Fallback:    "No outline.",
		},
		Revise: EndpointConfig{
			Temperature: 0.4,
			MaxTokens:   500,
			Title:       "Story Studio - Revise Outline",
			Fallback:    "No revision.",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, a .env file in the working
// directory, the file at path (JSON, or YAML for .yaml/.yml) and finally the
// environment. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := unmarshal(path, data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

// Save writes the configuration to path in the format its extension names.
// The API key is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.LLM.APIKey = ""

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(&out)
	} else {
		data, err = json.MarshalIndent(&out, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("OPENROUTER_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if model := os.Getenv("STORYSTUDIO_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if provider := os.Getenv("STORYSTUDIO_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if addr := os.Getenv("STORYSTUDIO_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("STORYSTUDIO_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// ValidProviders lists the supported gateway providers.
var ValidProviders = []string{"openrouter", "openai", "mock"}

// Validate checks the values that cannot be fixed up later. A missing API
// key is reported by the gateway itself, since the mock provider and a
// remote terminal studio run without one.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid llm provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.LLM.Model == "" {
		return errors.New("llm model is required")
	}
	if c.Server.Addr == "" {
		return errors.New("server addr is required")
	}
	if _, err := time.ParseDuration(c.Server.RequestTimeout); c.Server.RequestTimeout != "" && err != nil {
		return fmt.Errorf("invalid server request_timeout %q: %w", c.Server.RequestTimeout, err)
	}
	for name, ep := range map[Endpoint]EndpointConfig{EndpointOutline: c.Outline, EndpointRevise: c.Revise} {
		if ep.Temperature < 0 || ep.Temperature > 2 {
			return fmt.Errorf("%s temperature %.2f out of range [0, 2]", name, ep.Temperature)
		}
		if ep.MaxTokens <= 0 {
			return fmt.Errorf("%s max_tokens must be positive", name)
		}
	}
	return nil
}

// GetRequestTimeout returns the per-request model timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.RequestTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Settings returns the gateway settings for one endpoint.
func (c *Config) Settings(ep Endpoint) generator.LLMSettings {
	e := c.Outline
	if ep == EndpointRevise {
		e = c.Revise
	}
	return generator.LLMSettings{
		Provider:    c.LLM.Provider,
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Temperature: e.Temperature,
		MaxTokens:   e.MaxTokens,
		Referer:     c.LLM.Referer,
		Title:       e.Title,
		Fallback:    e.Fallback,
	}
}
