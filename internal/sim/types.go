// Package sim holds the simulation data model and the round engine:
// speaker selection, content sanitization, stance evolution, and the
// emergent-metrics computation that together define one deliberation round.
package sim

import (
	"fmt"
	"strings"
)

// Role identifies what part an agent plays in the deliberation.
type Role string

const (
	// RoleMediator is the single facilitator agent. It always speaks first
	// and is not subject to stance drift.
	RoleMediator Role = "mediator"
	// RoleUser is a participant agent, subject to selection, drift, and
	// reaction generation.
	RoleUser Role = "user"
)

// Agent is a single deliberation participant. ID, Name, PersonaText, Quirks,
// and Role are immutable after creation; Stance drifts every round.
type Agent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PersonaText string   `json:"persona_text"`
	Quirks      []string `json:"quirks"`
	Stance      string   `json:"stance"`
	Energy      float64  `json:"energy"`
	Role        Role     `json:"role"`
	MBTIType    string   `json:"mbti_type,omitempty"`
}

// Turn is one agent's sanitized spoken contribution in a round. Ordering is
// significant: later turns may reference earlier ones.
type Turn struct {
	SpeakerID string `json:"speaker_id"`
	Message   string `json:"message"`
}

// Reaction is a lightweight non-verbal response from a user agent that did
// not speak this round.
type Reaction struct {
	AgentID      string `json:"agent_id"`
	Emoji        string `json:"emoji"`
	MicroComment string `json:"micro_comment"`
}

// Metrics is the social-dynamics snapshot computed after each round over the
// full accumulated history.
type Metrics struct {
	ConsensusScore     float64  `json:"consensus_score"`
	PolarizationScore  float64  `json:"polarization_score"`
	DetectedCoalitions []string `json:"detected_coalitions"`
	CivilityScore      float64  `json:"civility_score"`
}

// RoundResult captures everything one round produced. It is immutable once
// returned; history is append-only.
type RoundResult struct {
	RoundNumber     int        `json:"round_number"`
	SpeakerIDs      []string   `json:"speaker_ids"`
	Turns           []Turn     `json:"turns"`
	Reactions       []Reaction `json:"reactions"`
	EmergentPattern string     `json:"emergent_pattern"`
	Metrics         Metrics    `json:"metrics"`
}

// WorldState caches the most recent round's derived values. It is a
// convenience view, never authoritative.
type WorldState struct {
	LastEmergentPattern string   `json:"last_emergent_pattern,omitempty"`
	LastSpeakerIDs      []string `json:"last_speaker_ids,omitempty"`
	LastMetrics         *Metrics `json:"last_metrics,omitempty"`
}

// State is the single mutable simulation aggregate for one session.
// All mutation must happen under the owning session's lock.
type State struct {
	Topic          string     `json:"topic"`
	RoundNumber    int        `json:"round_number"`
	Agents         []*Agent   `json:"agents"`
	PublicHistory  []Turn     `json:"public_history"`
	Reactions      []Reaction `json:"reactions"`
	World          WorldState `json:"world_state"`
	DatasetSummary string     `json:"dataset_summary,omitempty"`
}

// ValidationError reports malformed agent input. It is fatal at construction
// time, before the agent ever enters the roster.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid agent %s: %s", e.Field, e.Reason)
}

// NormalizeStance collapses whitespace and guarantees terminal punctuation.
// It returns a ValidationError if the stance is empty after cleaning.
func NormalizeStance(stance string) (string, error) {
	cleaned := strings.Join(strings.Fields(stance), " ")
	if cleaned == "" {
		return "", &ValidationError{Field: "stance", Reason: "cannot be empty"}
	}
	if !strings.ContainsRune(".!?", rune(cleaned[len(cleaned)-1])) {
		cleaned += "."
	}
	return cleaned, nil
}

// ValidateAgent checks the construction-time invariants: exactly three
// non-empty quirks, a normalized non-empty stance, and energy in [0,1].
// The stance is normalized in place.
func ValidateAgent(a *Agent) error {
	if a.Name == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	cleaned := make([]string, 0, len(a.Quirks))
	for _, q := range a.Quirks {
		q = strings.Join(strings.Fields(q), " ")
		if q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) != 3 {
		return &ValidationError{Field: "quirks", Reason: "must contain exactly 3 non-empty items"}
	}
	a.Quirks = cleaned

	stance, err := NormalizeStance(a.Stance)
	if err != nil {
		return err
	}
	a.Stance = stance

	if a.Energy < 0 || a.Energy > 1 {
		return &ValidationError{Field: "energy", Reason: "must be in [0,1]"}
	}
	if a.Role != RoleMediator && a.Role != RoleUser {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", a.Role)}
	}
	return nil
}

// Users returns the user-role agents in roster order.
func (s *State) Users() []*Agent {
	users := make([]*Agent, 0, len(s.Agents))
	for _, a := range s.Agents {
		if a.Role == RoleUser {
			users = append(users, a)
		}
	}
	return users
}

// AgentByID returns the agent with the given id, or nil.
func (s *State) AgentByID(id string) *Agent {
	for _, a := range s.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Clone produces a deep copy of the state, safe to hand out as a snapshot
// while the original keeps mutating under its session lock.
func (s *State) Clone() *State {
	out := &State{
		Topic:          s.Topic,
		RoundNumber:    s.RoundNumber,
		DatasetSummary: s.DatasetSummary,
		Agents:         make([]*Agent, len(s.Agents)),
		PublicHistory:  append([]Turn(nil), s.PublicHistory...),
		Reactions:      append([]Reaction(nil), s.Reactions...),
	}
	for i, a := range s.Agents {
		copied := *a
		copied.Quirks = append([]string(nil), a.Quirks...)
		out.Agents[i] = &copied
	}
	out.World = WorldState{
		LastEmergentPattern: s.World.LastEmergentPattern,
		LastSpeakerIDs:      append([]string(nil), s.World.LastSpeakerIDs...),
	}
	if s.World.LastMetrics != nil {
		m := *s.World.LastMetrics
		m.DetectedCoalitions = append([]string(nil), s.World.LastMetrics.DetectedCoalitions...)
		out.World.LastMetrics = &m
	}
	return out
}
