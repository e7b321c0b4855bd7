package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agora-dev/agora/pkg/session"
)

// Config represents the application configuration
type Config struct {
	// API Keys
	AnthropicKey string `yaml:"anthropic_key"`
	OpenAIKey    string `yaml:"openai_key"`

	// Generation Configuration
	Provider          string  `yaml:"provider"` // anthropic, openai, none
	Model             string  `yaml:"model"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TurnTimeout       string  `yaml:"turn_timeout"` // e.g. "15s"

	// Server Configuration
	Server ServerConfig `yaml:"server"`

	// Session journaling
	Session session.Config `yaml:"session"`

	// Simulation limits
	Simulation SimulationConfig `yaml:"simulation"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	ObservabilityPort int    `yaml:"observability_port"`
}

// SimulationConfig holds deliberation limits
type SimulationConfig struct {
	MaxUsers        int `yaml:"max_users"`
	MaxRoundsPerRun int `yaml:"max_rounds_per_run"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 100
	}
	if c.Temperature == 0 {
		c.Temperature = 0.85
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}
	if c.TurnTimeout == "" {
		c.TurnTimeout = "15s"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ObservabilityPort == 0 {
		c.Server.ObservabilityPort = 9090
	}
	if c.Session.Store == "" {
		c.Session = session.DefaultConfig()
	}
	if c.Simulation.MaxUsers == 0 {
		c.Simulation.MaxUsers = 25
	}
	if c.Simulation.MaxRoundsPerRun == 0 {
		c.Simulation.MaxRoundsPerRun = 50
	}

	// Load API keys from environment if not in config
	if c.AnthropicKey == "" {
		c.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("anthropic_key is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("openai_key is required for the openai provider")
		}
	case "none":
	default:
		return fmt.Errorf("unknown provider %q (want anthropic, openai, or none)", c.Provider)
	}

	if c.Simulation.MaxUsers < 1 {
		return fmt.Errorf("simulation.max_users must be positive")
	}
	if c.Simulation.MaxRoundsPerRun < 1 {
		return fmt.Errorf("simulation.max_rounds_per_run must be positive")
	}
	return nil
}
