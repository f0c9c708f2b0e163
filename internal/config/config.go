package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ticketfixture/internal/domain"
	"ticketfixture/internal/export"
	"ticketfixture/internal/generator"
)

// FileName is the optional workspace config file.
const FileName = "tf.yml"

// Config models tf.yml.
type Config struct {
	Generator GeneratorConfig `yaml:"generator" json:"generator"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Webhooks  []WebhookConfig `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

type GeneratorConfig struct {
	Count     int    `yaml:"count" json:"count"`
	Seed      int64  `yaml:"seed" json:"seed"`
	Reference string `yaml:"reference" json:"reference"`
	Output    string `yaml:"output" json:"output"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	BasePath string `yaml:"base_path" json:"base_path"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Secret         string   `yaml:"secret,omitempty" json:"-"`
	Events         []string `yaml:"events,omitempty" json:"events,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Generator.Count < 1 {
		return fmt.Errorf("config.generator.count must be at least 1")
	}
	if _, err := domain.ParseTime(c.Generator.Reference); err != nil {
		return fmt.Errorf("config.generator.reference must look like %s: %w", domain.TimeLayout, err)
	}
	if strings.TrimSpace(c.Generator.Output) == "" {
		return fmt.Errorf("config.generator.output is required")
	}
	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("config.logging.format must be json or text")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %d has negative timeout", i)
		}
	}
	return nil
}

// GeneratorOptions converts the generator section into generator.Options.
func (c *Config) GeneratorOptions() (generator.Options, error) {
	ref, err := domain.ParseTime(c.Generator.Reference)
	if err != nil {
		return generator.Options{}, fmt.Errorf("invalid reference: %w", err)
	}
	return generator.Options{Count: c.Generator.Count, Seed: c.Generator.Seed, Reference: ref}, nil
}

// NormalizeLogLevel lowercases level and checks it is known. Empty means info.
func NormalizeLogLevel(level string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "":
		return "info", nil
	case "debug", "info", "warn", "error":
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return fmt.Sprintf(defaultTemplate, generator.DefaultCount, generator.DefaultSeed, generator.DefaultReference, export.DefaultPath)
}

// Default returns the fixture constants as a Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault())).Decode(&cfg)
	return &cfg
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses config over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `generator:
  count: %d
  seed: %d
  reference: "%s"
  output: %s

logging:
  level: info
  format: json

server:
  addr: 127.0.0.1:8080
  base_path: /v0

# webhooks:
#   - url: https://example.invalid/hooks/tf
#     events: [run.created]
#     timeout_seconds: 5
`
