package llm

import (
	"fmt"
	"strings"

	"github.com/agora-dev/agora/internal/sim"
)

// recentHistoryTurns bounds how much accumulated history is replayed into a
// generation request, on top of the turns already produced this round.
const recentHistoryTurns = 12

var mbtiDescriptions = map[rune]string{
	'E': "extraverted, energized by interaction",
	'I': "introverted, energized by reflection",
	'S': "sensing, focused on concrete facts",
	'N': "intuitive, focused on patterns and possibilities",
	'T': "thinking, logic-driven decisions",
	'F': "feeling, values-driven decisions",
	'J': "judging, prefers structure and planning",
	'P': "perceiving, prefers flexibility and openness",
}

func mbtiLine(mbtiType string) string {
	if mbtiType == "" {
		return ""
	}
	var traits []string
	for _, c := range strings.ToUpper(mbtiType) {
		if desc, ok := mbtiDescriptions[c]; ok {
			traits = append(traits, desc)
		}
	}
	if len(traits) == 0 {
		return ""
	}
	return fmt.Sprintf("\nYour MBTI type: %s (%s)\n", mbtiType, strings.Join(traits, ", "))
}

// BuildSystemPrompt produces the role-specific system prompt for a speaker.
func BuildSystemPrompt(agent *sim.Agent, state *sim.State) string {
	var prompt string
	if agent.Role == sim.RoleMediator {
		prompt = mediatorSystemPrompt(agent, state.Topic, state.RoundNumber)
	} else {
		prompt = userSystemPrompt(agent, state.Topic, state.RoundNumber)
	}
	if state.DatasetSummary != "" {
		prompt += "\n\nDATASET CONTEXT (reference it when it supports your point):\n" + state.DatasetSummary
	}
	return prompt
}

func mediatorSystemPrompt(agent *sim.Agent, topic string, roundNumber int) string {
	return fmt.Sprintf(
		"You are %q, a mediator in a multi-agent deliberation about: %s\n"+
			"\n"+
			"Your persona: %s\n"+
			"Your traits: %s\n"+
			"Your current stance: %s\n"+
			"Your energy level: %.1f/1.0\n"+
			"This is round %d of the discussion.\n"+
			"\n"+
			"YOUR ROLE:\n"+
			"- Facilitate fair turn-taking among participants\n"+
			"- Summarize what the group has discussed so far\n"+
			"- Keep the conversation civil and on-track\n"+
			"- Ask for concrete actions, proposals, or objections\n"+
			"- If conflict arises, reframe it neutrally\n"+
			"- Occasionally ask for input from those who haven't spoken\n"+
			"\n"+
			"CONSTRAINTS:\n"+
			"- Respond in 18 words maximum\n"+
			"- Stay neutral; do not advocate for a specific position\n"+
			"- Address participants by name when referencing their points\n"+
			"- Do not use markdown formatting, bullet points, or numbered lists\n"+
			"- Write in a natural conversational tone as if speaking aloud in a meeting",
		agent.Name, topic, agent.PersonaText, strings.Join(agent.Quirks, ", "), agent.Stance, agent.Energy, roundNumber,
	)
}

func userSystemPrompt(agent *sim.Agent, topic string, roundNumber int) string {
	activeQuirk := agent.Quirks[roundNumber%3]
	return fmt.Sprintf(
		"You are %q, a participant in a multi-agent deliberation about: %s\n"+
			"\n"+
			"Your persona: %s\n"+
			"%s"+
			"Your traits: %s\n"+
			"Your current stance: %s\n"+
			"Your energy level: %.1f/1.0 (higher = more assertive and action-oriented; "+
			"lower = more cautious and deliberate)\n"+
			"This is round %d of the discussion.\n"+
			"\n"+
			"YOUR ROLE:\n"+
			"- Contribute your unique perspective shaped by your persona and traits\n"+
			"- Respond to what others have said; build on, challenge, or refine their ideas\n"+
			"- Propose concrete next steps or ask probing questions\n"+
			"- Your energy level should influence your tone: high energy = decisive and "+
			"action-oriented; low energy = reflective and cautious\n"+
			"- Use your active trait for this round: %q\n"+
			"\n"+
			"CONSTRAINTS:\n"+
			"- Respond in 18 words maximum\n"+
			"- Do not break character or reference the simulation\n"+
			"- Do not use markdown formatting, bullet points, or numbered lists\n"+
			"- End with an invitation for others to respond (a question or challenge)\n"+
			"- Write in a natural conversational tone as if speaking aloud in a meeting",
		agent.Name, topic, agent.PersonaText, mbtiLine(agent.MBTIType),
		strings.Join(agent.Quirks, ", "), agent.Stance, agent.Energy, roundNumber, activeQuirk,
	)
}

// BuildUserMessage renders the conversational context (recent history plus
// the turns already produced this round) into a single user message. When no
// one has spoken yet it asks the speaker to open the discussion.
func BuildUserMessage(state *sim.State, turnsSoFar []sim.Turn, speaker *sim.Agent) string {
	recent := state.PublicHistory
	if len(recent) > recentHistoryTurns {
		recent = recent[len(recent)-recentHistoryTurns:]
	}
	context := make([]sim.Turn, 0, len(recent)+len(turnsSoFar))
	context = append(context, recent...)
	context = append(context, turnsSoFar...)

	if len(context) == 0 {
		return fmt.Sprintf(
			"You are starting the discussion on the topic: %q\nNo one has spoken yet. Please open the conversation.",
			state.Topic,
		)
	}

	names := make(map[string]string, len(state.Agents))
	for _, a := range state.Agents {
		names[a.ID] = a.Name
	}
	lines := make([]string, 0, len(context))
	for _, turn := range context {
		name := names[turn.SpeakerID]
		if name == "" {
			name = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, turn.Message))
	}

	return fmt.Sprintf(
		"Here is the recent conversation:\n\n%s\n\nNow respond as %s. Remember your persona, traits, and constraints.",
		strings.Join(lines, "\n"), speaker.Name,
	)
}
