package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agora-dev/agora/internal/sim"
)

// stubRunner appends one mediator turn per round without touching selection.
type stubRunner struct {
	err error
}

func (r *stubRunner) RunRound(_ context.Context, state *sim.State) (*sim.RoundResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	state.RoundNumber++
	turn := sim.Turn{SpeakerID: state.Agents[0].ID, Message: "A round happened."}
	state.PublicHistory = append(state.PublicHistory, turn)
	return &sim.RoundResult{
		RoundNumber: state.RoundNumber,
		SpeakerIDs:  []string{turn.SpeakerID},
		Turns:       []sim.Turn{turn},
	}, nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return newSession("test", "city transit", backend)
}

func makeUsers(t *testing.T, topic string, names ...string) []*sim.Agent {
	t.Helper()
	inputs := make([]sim.UserAgentInput, 0, len(names))
	for _, name := range names {
		inputs = append(inputs, sim.UserAgentInput{
			Name:        name,
			PersonaText: name + " has a distinctive take on most debates",
			Energy:      0.5,
		})
	}
	agents, err := sim.NewUserAgents(topic, inputs)
	if err != nil {
		t.Fatalf("NewUserAgents() error = %v", err)
	}
	return agents
}

func TestSessionFreshState(t *testing.T) {
	sess := newTestSession(t)
	state := sess.Snapshot()

	if state.Topic != "city transit" {
		t.Errorf("topic = %q, want %q", state.Topic, "city transit")
	}
	if len(state.Agents) != 1 || state.Agents[0].Role != sim.RoleMediator {
		t.Errorf("fresh state should hold a single mediator, got %d agents", len(state.Agents))
	}
	if sess.UserCount() != 0 {
		t.Errorf("UserCount() = %d, want 0", sess.UserCount())
	}
}

func TestSessionSnapshotIsIsolated(t *testing.T) {
	sess := newTestSession(t)
	snap := sess.Snapshot()
	snap.Topic = "mutated"
	snap.Agents[0].Stance = "mutated"

	fresh := sess.Snapshot()
	if fresh.Topic == "mutated" || fresh.Agents[0].Stance == "mutated" {
		t.Error("mutating a snapshot leaked into session state")
	}
}

func TestSessionAddAgentsIdempotent(t *testing.T) {
	sess := newTestSession(t)
	ctx := context.Background()
	users := makeUsers(t, sess.Topic(), "Maya", "Viktor")

	sess.AddAgents(ctx, users)
	if sess.UserCount() != 2 {
		t.Fatalf("UserCount() = %d, want 2", sess.UserCount())
	}

	// Same deterministic ids, so re-adding is a no-op.
	again := makeUsers(t, sess.Topic(), "Maya", "Viktor")
	sess.AddAgents(ctx, again)
	if sess.UserCount() != 2 {
		t.Errorf("UserCount() after re-add = %d, want 2", sess.UserCount())
	}
}

func TestSessionSetTopicClearsProgressKeepsRoster(t *testing.T) {
	sess := newTestSession(t)
	ctx := context.Background()
	sess.AddAgents(ctx, makeUsers(t, sess.Topic(), "Maya", "Viktor", "Amara", "Jun"))

	if _, err := sess.RunRound(ctx, &stubRunner{}); err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	state := sess.SetTopic(ctx, "ocean cleanup")
	if state.Topic != "ocean cleanup" {
		t.Errorf("topic = %q, want %q", state.Topic, "ocean cleanup")
	}
	if state.RoundNumber != 0 || len(state.PublicHistory) != 0 {
		t.Errorf("SetTopic should clear progress, got round %d with %d turns",
			state.RoundNumber, len(state.PublicHistory))
	}
	if got := sess.UserCount(); got != 4 {
		t.Errorf("UserCount() = %d, roster should survive a topic change", got)
	}
	for _, a := range state.Agents {
		if a.Role != sim.RoleUser {
			continue
		}
		if !strings.Contains(a.Stance, "ocean cleanup") {
			t.Errorf("agent %s stance %q not rebased on new topic", a.Name, a.Stance)
		}
	}
}

func TestSessionReset(t *testing.T) {
	sess := newTestSession(t)
	ctx := context.Background()
	sess.AddAgents(ctx, makeUsers(t, sess.Topic(), "Maya", "Viktor", "Amara", "Jun"))
	if _, err := sess.RunRound(ctx, &stubRunner{}); err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	state := sess.Reset(ctx, "")
	if state.Topic != sim.DefaultTopic {
		t.Errorf("topic = %q, want default", state.Topic)
	}
	if len(state.Agents) != 1 || state.RoundNumber != 0 || len(state.PublicHistory) != 0 {
		t.Errorf("Reset should produce a fresh mediator-only state")
	}
}

func TestSessionRunRoundJournals(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	defer func() { _ = backend.Close() }()
	sess := newSession("journaled", "topic", backend)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := sess.RunRound(ctx, &stubRunner{}); err != nil {
			t.Fatalf("RunRound() error = %v", err)
		}
	}

	rounds, err := backend.LoadRounds(ctx, "journaled")
	if err != nil {
		t.Fatalf("LoadRounds() error = %v", err)
	}
	if len(rounds) != 2 {
		t.Errorf("journaled rounds = %d, want 2", len(rounds))
	}
	state, err := backend.LoadState(ctx, "journaled")
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if state.RoundNumber != 2 {
		t.Errorf("journaled round number = %d, want 2", state.RoundNumber)
	}
}

func TestSessionRunRoundError(t *testing.T) {
	sess := newTestSession(t)
	wantErr := errors.New("roster broken")

	_, err := sess.RunRound(context.Background(), &stubRunner{err: wantErr})
	if !errors.Is(err, wantErr) {
		t.Errorf("RunRound() error = %v, want %v", err, wantErr)
	}
	if got := sess.Snapshot().RoundNumber; got != 0 {
		t.Errorf("failed round advanced round number to %d", got)
	}
}

func TestSessionInjectMediatorTurn(t *testing.T) {
	sess := newTestSession(t)
	ctx := context.Background()

	state := sess.InjectMediatorTurn(ctx, "Everyone please shut up now")
	if len(state.PublicHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(state.PublicHistory))
	}
	turn := state.PublicHistory[0]
	if turn.SpeakerID != state.Agents[0].ID {
		t.Errorf("injected turn speaker = %q, want mediator id", turn.SpeakerID)
	}
	if strings.Contains(strings.ToLower(turn.Message), "shut up") {
		t.Errorf("injected turn was not sanitized: %q", turn.Message)
	}
}

func TestSessionSetDatasetSummary(t *testing.T) {
	sess := newTestSession(t)
	state := sess.SetDatasetSummary(context.Background(), "DATASET: cities.csv")
	if state.DatasetSummary != "DATASET: cities.csv" {
		t.Errorf("dataset summary = %q", state.DatasetSummary)
	}
}
