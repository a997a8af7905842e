package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration shared by the chat client and the
// gateway.
type Config struct {
	Client  ClientConfig   `yaml:"client"`
	Gateway GatewayConfig  `yaml:"gateway"`
	Log     logging.Config `yaml:"log"`
}

// ClientConfig holds chat client settings.
type ClientConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Token              string        `yaml:"token"` //nolint:gosec // configuration field, not a hardcoded secret
	// Timeout bounds the wait for response headers. The streamed body is
	// not limited.
	Timeout            time.Duration `yaml:"timeout"`
	MaxAttachmentBytes int64         `yaml:"max_attachment_bytes"`
}

// GatewayConfig holds gateway proxy settings. Empty prompt and error strings
// fall back to the gateway's built-in defaults.
type GatewayConfig struct {
	Addr             string          `yaml:"addr"`
	UpstreamURL      string          `yaml:"upstream_url"`
	APIKey           string          `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model            string          `yaml:"model"`
	SystemPrompt     string          `yaml:"system_prompt"`
	SystemPromptFile string          `yaml:"system_prompt_file"`
	AuthToken        string          `yaml:"auth_token"` //nolint:gosec // configuration field, not a hardcoded secret
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
	Errors           ErrorMessages   `yaml:"errors"`
}

// RateLimitConfig controls the inbound per-client rate limit of the gateway.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`   // Requests per second (0 = no limit).
	Burst int     `yaml:"burst"` // Bucket size (default 1 when RPS is set).
}

// ErrorMessages are the user-visible error strings the gateway returns.
type ErrorMessages struct {
	RateLimited     string `yaml:"rate_limited"`
	PaymentRequired string `yaml:"payment_required"`
	Upstream        string `yaml:"upstream"`
}

const (
	DefaultBaseURL     = "http://localhost:8787"
	DefaultAddr        = ":8787"
	DefaultUpstreamURL = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultModel       = "google/gemini-2.5-flash"
	DefaultTimeout     = 5 * time.Minute
)

// DefaultConfig returns the configuration used when no file exists. Values
// read from a file are layered on top of it.
func DefaultConfig() Config {
	return Config{
		Client: ClientConfig{
			BaseURL:            DefaultBaseURL,
			Timeout:            DefaultTimeout,
			MaxAttachmentBytes: attachment.DefaultMaxBytes,
		},
		Gateway: GatewayConfig{
			Addr:        DefaultAddr,
			UpstreamURL: DefaultUpstreamURL,
			Model:       DefaultModel,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so tokens and API keys can live in the environment (e.g.
// loaded from a .env file) rather than in the config. A missing file yields
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// Save writes cfg as YAML to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("engine: encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("engine: save config: %w", err)
	}
	return nil
}

// Validate checks the settings shared by every mode.
func (c Config) Validate() error {
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("engine: config: unknown log level %q", c.Log.Level)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return fmt.Errorf("engine: config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// ValidateClient checks the settings needed by the chat client.
func (c Config) ValidateClient() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := validURL(c.Client.BaseURL); err != nil {
		return fmt.Errorf("engine: config: client base_url: %w", err)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("engine: config: client timeout must not be negative")
	}
	if c.Client.MaxAttachmentBytes < 0 {
		return fmt.Errorf("engine: config: client max_attachment_bytes must not be negative")
	}
	return nil
}

// ValidateGateway checks the settings needed by the gateway. A missing API
// key is not an error here; requests fail with a clear message instead.
func (c Config) ValidateGateway() error {
	if err := c.Validate(); err != nil {
		return err
	}
	g := c.Gateway
	if g.Addr == "" {
		return fmt.Errorf("engine: config: gateway addr is required")
	}
	if err := validURL(g.UpstreamURL); err != nil {
		return fmt.Errorf("engine: config: gateway upstream_url: %w", err)
	}
	if g.Model == "" {
		return fmt.Errorf("engine: config: gateway model is required")
	}
	if g.RateLimit.RPS < 0 || g.RateLimit.Burst < 0 {
		return fmt.Errorf("engine: config: gateway rate_limit values must not be negative")
	}
	return nil
}

func validURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
