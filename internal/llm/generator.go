// Package llm implements the message-generation collaborators of the round
// engine. A Generator turns an agent plus conversational context into raw
// candidate text; the engine sanitizes whatever comes back and tolerates any
// failure.
package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/agora-dev/agora/internal/sim"
)

// Config selects and tunes a generator provider.
type Config struct {
	// Provider is "anthropic", "openai", or "none" (fallback-only).
	Provider string
	// APIKey authenticates against the provider; falls back to the
	// provider's conventional environment variable when empty.
	APIKey string
	// Model overrides the provider default model.
	Model string
	// MaxTokens bounds each completion.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
	// RequestsPerSecond rate-limits generator calls; zero disables limiting.
	RequestsPerSecond float64
}

// DefaultConfig returns the generation defaults used by the service.
func DefaultConfig() Config {
	return Config{
		Provider:          "anthropic",
		MaxTokens:         100,
		Temperature:       0.85,
		RequestsPerSecond: 5,
	}
}

// New builds a generator for the configured provider, wrapped with rate
// limiting when configured.
func New(cfg Config) (sim.Generator, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.85
	}

	var gen sim.Generator
	var err error
	switch cfg.Provider {
	case "anthropic":
		gen, err = NewAnthropicGenerator(cfg)
	case "openai":
		gen, err = NewOpenAIGenerator(cfg)
	case "none", "":
		gen = failingGenerator{}
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		gen = NewLimitedGenerator(gen, rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return gen, nil
}

// failingGenerator always errors, which makes the engine use its fixed
// fallback sentences. Used when no provider is configured.
type failingGenerator struct{}

func (failingGenerator) GenerateTurn(context.Context, *sim.Agent, *sim.State, []sim.Turn) (string, error) {
	return "", fmt.Errorf("no generation provider configured")
}
