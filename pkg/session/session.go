// Package session owns the mutable simulation state. Each session guards its
// state with a mutex so at most one round (or roster change) mutates it at a
// time; snapshots are only observable between rounds, never mid-round.
package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/agora-dev/agora/internal/sim"
)

// RoundRunner executes one round against a state. The round engine satisfies
// this; test doubles can too.
type RoundRunner interface {
	RunRound(ctx context.Context, state *sim.State) (*sim.RoundResult, error)
}

// Session is one simulation with its own single-writer lock.
// All methods are safe for concurrent use.
type Session struct {
	id        string
	createdAt time.Time
	backend   StorageBackend

	mu    sync.Mutex
	state *sim.State
}

func newSession(id, topic string, backend StorageBackend) *Session {
	if backend == nil {
		backend = NewNopBackend()
	}
	return &Session{
		id:        id,
		createdAt: time.Now().UTC(),
		backend:   backend,
		state:     freshState(topic),
	}
}

func freshState(topic string) *sim.State {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = sim.DefaultTopic
	}
	return &sim.State{
		Topic:  topic,
		Agents: []*sim.Agent{sim.NewMediator()},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Snapshot returns a deep copy of the current state. It blocks while a round
// is in flight, so callers never observe a partially-mutated round.
func (s *Session) Snapshot() *sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Topic returns the current topic.
func (s *Session) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Topic
}

// UserCount returns the number of user agents in the roster.
func (s *Session) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Users())
}

// SetTopic changes the topic and restarts the simulation clock: history,
// reactions, and the round counter are cleared, and every user agent adopts a
// neutral stance toward the new topic. The roster is kept.
func (s *Session) SetTopic(ctx context.Context, topic string) *sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = sim.DefaultTopic
	}
	s.state.Topic = topic
	s.state.RoundNumber = 0
	s.state.PublicHistory = nil
	s.state.Reactions = nil
	s.state.World = sim.WorldState{}
	for _, a := range s.state.Agents {
		if a.Role == sim.RoleUser {
			a.Stance = sim.TopicChangeStance(a.Name, topic)
		}
	}

	s.journalState(ctx)
	return s.state.Clone()
}

// AddAgents appends agents whose id is not already present. Adding an agent
// with an existing id is a no-op, which together with deterministic ids makes
// repeated submissions idempotent.
func (s *Session) AddAgents(ctx context.Context, agents []*sim.Agent) *sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.state.Agents))
	for _, a := range s.state.Agents {
		existing[a.ID] = struct{}{}
	}
	for _, a := range agents {
		if _, dup := existing[a.ID]; dup {
			continue
		}
		existing[a.ID] = struct{}{}
		s.state.Agents = append(s.state.Agents, a)
	}

	s.journalState(ctx)
	return s.state.Clone()
}

// Reset discards the simulation entirely: fresh state, a single mediator,
// cleared history and round counter, optionally a new topic.
func (s *Session) Reset(ctx context.Context, topic string) *sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = freshState(topic)
	s.journalState(ctx)
	return s.state.Clone()
}

// SetDatasetSummary attaches (or clears) the dataset context injected into
// generation prompts.
func (s *Session) SetDatasetSummary(ctx context.Context, summary string) *sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.DatasetSummary = summary
	s.journalState(ctx)
	return s.state.Clone()
}

// InjectMediatorTurn appends a caller-authored mediator message to the public
// history, sanitized like any other turn. Used for manual interventions.
func (s *Session) InjectMediatorTurn(ctx context.Context, message string) *sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mediatorID string
	for _, a := range s.state.Agents {
		if a.Role == sim.RoleMediator {
			mediatorID = a.ID
			break
		}
	}
	turn := sim.Turn{
		SpeakerID: mediatorID,
		Message:   sim.TruncateToWords(sim.EnforceCivility(message), 100),
	}
	s.state.PublicHistory = append(s.state.PublicHistory, turn)

	s.journalState(ctx)
	return s.state.Clone()
}

// RunRound executes one round under the session lock. The lock is held for
// the whole round, which serializes rounds against each other and against
// roster changes and snapshots. A RosterError leaves the state untouched.
func (s *Session) RunRound(ctx context.Context, runner RoundRunner) (*sim.RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := runner.RunRound(ctx, s.state)
	if err != nil {
		return nil, err
	}

	if err := s.backend.AppendRound(ctx, s.id, result); err != nil {
		log.Printf("session %s: journal round %d: %v", s.id, result.RoundNumber, err)
	}
	s.journalState(ctx)
	return result, nil
}

// journalState persists the current state snapshot. Errors are logged only;
// the in-memory state stays authoritative. Caller must hold s.mu.
func (s *Session) journalState(ctx context.Context) {
	if err := s.backend.SaveState(ctx, s.id, s.state.Clone()); err != nil {
		log.Printf("session %s: journal state: %v", s.id, err)
	}
}
