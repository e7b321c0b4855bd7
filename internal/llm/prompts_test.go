package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-dev/agora/internal/sim"
)

func promptTestState() (*sim.State, *sim.Agent, *sim.Agent) {
	mediator := sim.NewMediator()
	users, err := sim.NewUserAgents("Renewable energy", []sim.UserAgentInput{
		{Name: "Maya", PersonaText: "Optimistic planner, loves pilots and rapid feedback", Energy: 0.8, MBTIType: "ENTP"},
	})
	if err != nil {
		panic(err)
	}
	state := &sim.State{
		Topic:       "Renewable energy",
		RoundNumber: 2,
		Agents:      []*sim.Agent{mediator, users[0]},
	}
	return state, mediator, users[0]
}

func TestBuildSystemPromptMediator(t *testing.T) {
	state, mediator, _ := promptTestState()
	prompt := BuildSystemPrompt(mediator, state)

	assert.Contains(t, prompt, `"The Chair", a mediator`)
	assert.Contains(t, prompt, "Renewable energy")
	assert.Contains(t, prompt, "round 2")
	assert.Contains(t, prompt, "18 words maximum")
	assert.Contains(t, prompt, "Stay neutral")
	assert.NotContains(t, prompt, "DATASET CONTEXT")
}

func TestBuildSystemPromptUser(t *testing.T) {
	state, _, maya := promptTestState()
	prompt := BuildSystemPrompt(maya, state)

	assert.Contains(t, prompt, `"Maya", a participant`)
	assert.Contains(t, prompt, "Your MBTI type: ENTP")
	assert.Contains(t, prompt, "extraverted, energized by interaction")
	assert.Contains(t, prompt, "Your current stance:")
	// Round 2 activates quirk index 2.
	assert.Contains(t, prompt, fmt.Sprintf("active trait for this round: %q", maya.Quirks[2]))
	assert.Contains(t, prompt, "18 words maximum")
}

func TestBuildSystemPromptDatasetContext(t *testing.T) {
	state, mediator, _ := promptTestState()
	state.DatasetSummary = "DATASET: cities.csv\nShape: 10 rows x 3 columns"

	prompt := BuildSystemPrompt(mediator, state)
	assert.Contains(t, prompt, "DATASET CONTEXT")
	assert.Contains(t, prompt, "DATASET: cities.csv")
}

func TestMBTILine(t *testing.T) {
	assert.Empty(t, mbtiLine(""))
	assert.Empty(t, mbtiLine("XQZW"))

	line := mbtiLine("istj")
	assert.Contains(t, line, "introverted, energized by reflection")
	assert.Contains(t, line, "judging, prefers structure and planning")
}

func TestBuildUserMessageOpening(t *testing.T) {
	state, _, maya := promptTestState()
	msg := BuildUserMessage(state, nil, maya)
	assert.Contains(t, msg, "starting the discussion")
	assert.Contains(t, msg, `"Renewable energy"`)
}

func TestBuildUserMessageTranscript(t *testing.T) {
	state, mediator, maya := promptTestState()
	state.PublicHistory = []sim.Turn{
		{SpeakerID: mediator.ID, Message: "Welcome everyone."},
	}
	turnsSoFar := []sim.Turn{
		{SpeakerID: maya.ID, Message: "I suggest a pilot."},
		{SpeakerID: "ghost", Message: "Untraceable remark."},
	}

	msg := BuildUserMessage(state, turnsSoFar, maya)
	assert.Contains(t, msg, "The Chair: Welcome everyone.")
	assert.Contains(t, msg, "Maya: I suggest a pilot.")
	assert.Contains(t, msg, "Unknown: Untraceable remark.")
	assert.Contains(t, msg, "Now respond as Maya.")
}

func TestBuildUserMessageHistoryWindow(t *testing.T) {
	state, mediator, maya := promptTestState()
	for i := 0; i < 20; i++ {
		state.PublicHistory = append(state.PublicHistory, sim.Turn{
			SpeakerID: mediator.ID,
			Message:   fmt.Sprintf("turn number %d", i),
		})
	}

	msg := BuildUserMessage(state, nil, maya)
	require.NotContains(t, msg, "turn number 7", "history beyond the window should be dropped")
	assert.Contains(t, msg, "turn number 8")
	assert.Contains(t, msg, "turn number 19")
	assert.Equal(t, recentHistoryTurns, strings.Count(msg, "turn number"))
}
