package sim

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agora-dev/agora/internal/telemetry"
	"github.com/agora-dev/agora/pkg/observability"
)

// Generator produces raw candidate text for one speaker. Implementations may
// fail or hang; the engine bounds each call with a timeout and substitutes a
// fallback sentence on any error, so a generator failure never aborts a round.
type Generator interface {
	GenerateTurn(ctx context.Context, agent *Agent, state *State, turnsSoFar []Turn) (string, error)
}

const (
	// maxTurnWords bounds every sanitized turn.
	maxTurnWords = 100

	// fallbackPattern is the emergent pattern when the mediator produced no
	// turn this round.
	fallbackPattern = "The group explored diverse angles while maintaining constructive energy."
)

var reactionEmojis = []string{"🙂", "🤔", "⚡", "📚", "🧩", "🌱", "🌀", "🛠️", "✨", "🧠"}

var microComments = []string{
	"Noted, testing this next.",
	"Interesting tension, stay curious.",
	"I can build on that.",
	"Small step, then iterate.",
	"Pattern spotted, still open.",
}

// Engine orchestrates one deliberation round: selection, sequential message
// generation, sanitization, reactions, stance drift, and metrics. It holds no
// per-session state; the caller owns the State and its lock.
type Engine struct {
	generator Generator
	timeout   time.Duration
}

// NewEngine builds a round engine around the given generator. timeout bounds
// each individual generator call; zero means a 15 second default.
func NewEngine(generator Generator, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Engine{generator: generator, timeout: timeout}
}

// FallbackMessage is the role-appropriate sentence used when generation fails
// for a speaker.
func FallbackMessage(agent *Agent, topic string) string {
	if agent.Role == RoleMediator {
		return fmt.Sprintf("Let's keep the discussion on %s focused. Who has a concrete next step?", topic)
	}
	return fmt.Sprintf("I'm thinking about %s from my perspective. I'd like to hear what others think before committing to a direction.", topic)
}

// RunRound executes one full round against the given state. The roster is
// validated before any mutation; a RosterError leaves the state untouched.
// After validation the round always completes: generation failures degrade to
// fallback sentences per speaker, never to a failed round. The caller must
// hold the session lock for the duration of the call.
func (e *Engine) RunRound(ctx context.Context, state *State) (*RoundResult, error) {
	speakers, err := SelectSpeakers(state.Agents)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "sim.round",
		attribute.Int("round", state.RoundNumber+1),
		attribute.String("topic", state.Topic),
	)
	defer span.End()

	state.RoundNumber++
	start := time.Now()

	// Turn generation is intentionally sequential: each speaker's content is
	// conditioned on the turns already produced this round.
	turns := make([]Turn, 0, len(speakers))
	for _, speaker := range speakers {
		raw := e.generate(ctx, speaker, state, turns)
		message := TruncateToWords(EnforceCivility(raw), maxTurnWords)
		turns = append(turns, Turn{SpeakerID: speaker.ID, Message: message})
	}

	speakerIDs := make([]string, len(speakers))
	speaking := make(map[string]struct{}, len(speakers))
	for i, s := range speakers {
		speakerIDs[i] = s.ID
		speaking[s.ID] = struct{}{}
	}

	reactions := make([]Reaction, 0)
	for _, a := range state.Agents {
		if a.Role != RoleUser {
			continue
		}
		if _, spoke := speaking[a.ID]; spoke {
			continue
		}
		reactions = append(reactions, reactionFor(a, state.RoundNumber))
	}

	for _, a := range state.Agents {
		if a.Role == RoleUser {
			driftStance(a, state.Topic, state.RoundNumber)
		}
	}

	state.PublicHistory = append(state.PublicHistory, turns...)
	state.Reactions = append(state.Reactions, reactions...)

	pattern := emergentPattern(turns, state.Agents)
	metrics := ComputeMetrics(state)

	state.World.LastEmergentPattern = pattern
	state.World.LastSpeakerIDs = speakerIDs
	state.World.LastMetrics = &metrics

	observability.RecordRound(len(turns), time.Since(start))

	return &RoundResult{
		RoundNumber:     state.RoundNumber,
		SpeakerIDs:      speakerIDs,
		Turns:           turns,
		Reactions:       reactions,
		EmergentPattern: pattern,
		Metrics:         metrics,
	}, nil
}

// generate obtains raw text for one speaker, bounded by the engine timeout.
// Any failure is logged and replaced with the role fallback.
func (e *Engine) generate(ctx context.Context, speaker *Agent, state *State, turnsSoFar []Turn) string {
	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	genCtx, span := telemetry.StartSpan(genCtx, "sim.generate",
		attribute.String("speaker", speaker.Name),
		attribute.String("role", string(speaker.Role)),
	)
	defer span.End()

	raw, err := e.generator.GenerateTurn(genCtx, speaker, state, turnsSoFar)
	if err != nil {
		log.Printf("generation failed for %s, using fallback: %v", speaker.Name, err)
		observability.RecordGenerationFallback()
		return FallbackMessage(speaker, state.Topic)
	}
	if strings.TrimSpace(raw) == "" {
		log.Printf("empty generation for %s, using fallback", speaker.Name)
		observability.RecordGenerationFallback()
		return FallbackMessage(speaker, state.Topic)
	}
	return raw
}

// reactionFor builds the deterministic reaction for a non-speaking user.
// Emoji and comment use distinct seeds (id vs. name) so they vary
// independently but reproduce exactly for the same agent and round.
func reactionFor(agent *Agent, roundNumber int) Reaction {
	emoji := reactionEmojis[StableIndex(agent.ID+fmt.Sprint(roundNumber), len(reactionEmojis))]
	micro := microComments[StableIndex(agent.Name+fmt.Sprint(roundNumber), len(microComments))]
	words := strings.Fields(micro)
	if len(words) > 6 {
		micro = strings.Join(words[:6], " ")
	}
	return Reaction{AgentID: agent.ID, Emoji: emoji, MicroComment: micro}
}

// driftStance rewrites a user agent's stance after a round: a deterministic
// sentence built from the quirk cycled by round number and a tone phrase
// keyed to the agent's energy. Mediator stance never drifts.
func driftStance(agent *Agent, topic string, roundNumber int) {
	anchor := agent.Quirks[roundNumber%3]
	tone := "careful checks"
	if agent.Energy >= 0.5 {
		tone = "collaborative trials"
	}
	agent.Stance = fmt.Sprintf("%s now frames %s through %s, favoring %s with civil debate.", agent.Name, topic, anchor, tone)
}

// emergentPattern is the most recent turn this round authored by the
// mediator, or a fixed sentence when the mediator produced none.
func emergentPattern(turns []Turn, agents []*Agent) string {
	mediatorIDs := make(map[string]struct{})
	for _, a := range agents {
		if a.Role == RoleMediator {
			mediatorIDs[a.ID] = struct{}{}
		}
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if _, ok := mediatorIDs[turns[i].SpeakerID]; ok {
			return turns[i].Message
		}
	}
	return fallbackPattern
}
