package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agora-dev/agora/internal/sim"
)

const openaiDefaultModel = "gpt-4o-mini"

// ChatCompleter is the slice of the OpenAI client the generator needs.
// Narrowing the dependency keeps the generator testable without the network.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator produces turns via the OpenAI chat completion API.
type OpenAIGenerator struct {
	client      ChatCompleter
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIGenerator builds an OpenAI-backed generator. The API key falls
// back to OPENAI_API_KEY.
func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return NewOpenAIGeneratorWithClient(openai.NewClient(apiKey), cfg), nil
}

// NewOpenAIGeneratorWithClient builds a generator around a custom client,
// useful for testing.
func NewOpenAIGeneratorWithClient(client ChatCompleter, cfg Config) *OpenAIGenerator {
	model := cfg.Model
	if model == "" {
		model = openaiDefaultModel
	}
	return &OpenAIGenerator{
		client:      client,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// GenerateTurn implements sim.Generator.
func (g *OpenAIGenerator) GenerateTurn(ctx context.Context, agent *sim.Agent, state *sim.State, turnsSoFar []sim.Turn) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: float32(g.temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(agent, state)},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserMessage(state, turnsSoFar, agent)},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("empty response from openai API")
	}
	return out, nil
}
