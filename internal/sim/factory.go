package sim

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTopic is used when a session is created or reset without one.
const DefaultTopic = "Open-ended deliberation"

// quirkFallbacks pad the quirk list when a persona yields fewer than three
// usable phrases.
var quirkFallbacks = []string{
	"asks unusual questions",
	"connects distant concepts",
	"prefers practical experiments",
}

var phraseSplit = regexp.MustCompile(`[.,;:!?]| and | but | while | because `)

// UserAgentInput is the caller-supplied description of a user agent. The
// factory derives quirks, stance, and identity from it.
type UserAgentInput struct {
	Name        string  `json:"name"`
	PersonaText string  `json:"persona_text"`
	Energy      float64 `json:"energy"`
	MBTIType    string  `json:"mbti_type,omitempty"`
}

// ExtractQuirks derives exactly three short behavioral phrases from free-form
// persona text: split on punctuation and connectives, cap each phrase at six
// words, dedupe, and pad with fixed fallbacks.
func ExtractQuirks(personaText string) []string {
	selected := make([]string, 0, 3)
	seen := make(map[string]struct{})

	for _, chunk := range phraseSplit.Split(personaText, -1) {
		phrase := strings.Join(strings.Fields(chunk), " ")
		if phrase == "" {
			continue
		}
		words := strings.Fields(phrase)
		if len(words) > 6 {
			phrase = strings.Join(words[:6], " ")
		}
		phrase = strings.ToLower(phrase)
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		selected = append(selected, phrase)
		if len(selected) == 3 {
			return selected
		}
	}

	for _, fallback := range quirkFallbacks {
		if len(selected) == 3 {
			break
		}
		if _, dup := seen[fallback]; !dup {
			seen[fallback] = struct{}{}
			selected = append(selected, fallback)
		}
	}
	return selected[:3]
}

// BuildInitialStance templates a starting stance from the agent's lead quirk.
func BuildInitialStance(topic string, quirks []string, name string) string {
	return fmt.Sprintf("%s approaches %s by emphasizing %s to find constructive progress.", name, topic, quirks[0])
}

// TopicChangeStance is the stance every user agent adopts when the session
// topic changes mid-simulation.
func TopicChangeStance(name, topic string) string {
	return fmt.Sprintf("%s approaches %s constructively while staying adaptable.", name, topic)
}

// NewMediator builds the fixed facilitator agent present in every session.
func NewMediator() *Agent {
	return &Agent{
		ID:          DeterministicAgentID(RoleMediator, "The Chair", "turn-taking civility summaries", 0),
		Name:        "The Chair",
		PersonaText: "Ensures turn-taking, summarizes discussions, keeps civility.",
		Quirks: []string{
			"counts speaking turns",
			"reframes conflict calmly",
			"summarizes with neutral language",
		},
		Stance: "I prioritize fair turn-taking and clear summaries so the group stays constructive.",
		Energy: 0.7,
		Role:   RoleMediator,
	}
}

// NewUserAgents builds validated user agents from caller input. The index
// participates in id derivation, so resubmitting the same batch produces the
// same ids and agent addition stays idempotent.
func NewUserAgents(topic string, inputs []UserAgentInput) ([]*Agent, error) {
	agents := make([]*Agent, 0, len(inputs))
	for idx, in := range inputs {
		name := strings.TrimSpace(in.Name)
		persona := strings.TrimSpace(in.PersonaText)
		if name == "" {
			return nil, &ValidationError{Field: "name", Reason: "cannot be empty"}
		}
		if persona == "" {
			return nil, &ValidationError{Field: "persona_text", Reason: "cannot be empty"}
		}
		quirks := ExtractQuirks(persona)
		agent := &Agent{
			ID:          DeterministicAgentID(RoleUser, name, persona, idx),
			Name:        name,
			PersonaText: persona,
			Quirks:      quirks,
			Stance:      BuildInitialStance(topic, quirks, name),
			Energy:      in.Energy,
			Role:        RoleUser,
			MBTIType:    strings.ToUpper(strings.TrimSpace(in.MBTIType)),
		}
		if err := ValidateAgent(agent); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}
