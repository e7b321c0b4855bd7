package llm

import (
	"context"
	"sync"

	"github.com/agora-dev/agora/internal/sim"
)

// ScriptedGenerator is a test double that replays queued responses and
// errors in order, then repeats a default sentence. It records every call.
type ScriptedGenerator struct {
	mu sync.Mutex

	// Responses are returned in order; once exhausted, Default is used.
	Responses []string
	// Errors aligned by call index; a non-nil entry fails that call.
	Errors []error
	// Default is returned after Responses run out. Empty means a canned
	// sentence.
	Default string

	// Calls records the speaker name of each invocation, in order.
	Calls []string

	index int
}

// GenerateTurn implements sim.Generator.
func (g *ScriptedGenerator) GenerateTurn(_ context.Context, agent *sim.Agent, _ *sim.State, _ []sim.Turn) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Calls = append(g.Calls, agent.Name)
	i := g.index
	g.index++

	if i < len(g.Errors) && g.Errors[i] != nil {
		return "", g.Errors[i]
	}
	if i < len(g.Responses) {
		return g.Responses[i], nil
	}
	if g.Default != "" {
		return g.Default, nil
	}
	return "I propose we compare concrete options before deciding. What does everyone think?", nil
}

// CallCount returns how many times the generator was invoked.
func (g *ScriptedGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}
