package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/agora-dev/agora/internal/sim"
)

// LimitedGenerator rate-limits an inner generator. A wait that outlives the
// call's context surfaces as an ordinary generation error, which the engine
// absorbs with a fallback.
type LimitedGenerator struct {
	inner   sim.Generator
	limiter *rate.Limiter
}

// NewLimitedGenerator wraps gen with a token-bucket limiter.
func NewLimitedGenerator(gen sim.Generator, limit rate.Limit, burst int) *LimitedGenerator {
	return &LimitedGenerator{
		inner:   gen,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// GenerateTurn implements sim.Generator.
func (g *LimitedGenerator) GenerateTurn(ctx context.Context, agent *sim.Agent, state *sim.State, turnsSoFar []sim.Turn) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return g.inner.GenerateTurn(ctx, agent, state, turnsSoFar)
}
