package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Maya", "maya"},
		{"The Chair", "the-chair"},
		{"  José   García  ", "jos-garc-a"},
		{"!!!", "agent"},
		{"", "agent"},
		{"A--B", "a-b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.input), "input %q", tt.input)
	}
}

func TestDeterministicAgentID(t *testing.T) {
	id := DeterministicAgentID(RoleUser, "Maya", "optimistic planner", 0)

	parts := strings.SplitN(id, "_", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "u", parts[0])
	assert.Equal(t, "maya", parts[1])
	assert.Len(t, parts[2], 10)

	// Same input, same id. Any component change produces a new id.
	assert.Equal(t, id, DeterministicAgentID(RoleUser, "Maya", "optimistic planner", 0))
	assert.NotEqual(t, id, DeterministicAgentID(RoleUser, "Maya", "optimistic planner", 1))
	assert.NotEqual(t, id, DeterministicAgentID(RoleUser, "Maya", "pessimistic planner", 0))
	assert.NotEqual(t, id, DeterministicAgentID(RoleMediator, "Maya", "optimistic planner", 0))

	// Case and surrounding whitespace do not matter.
	assert.Equal(t, id, DeterministicAgentID(RoleUser, "  MAYA ", "Optimistic Planner", 0))
}

func TestExtractQuirks(t *testing.T) {
	t.Run("three phrases from punctuation and connectives", func(t *testing.T) {
		quirks := ExtractQuirks("Loves experiments, asks sharp questions and maps systems carefully")
		assert.Equal(t, []string{"loves experiments", "asks sharp questions", "maps systems carefully"}, quirks)
	})

	t.Run("long phrase capped at six words", func(t *testing.T) {
		quirks := ExtractQuirks("one two three four five six seven eight")
		assert.Equal(t, "one two three four five six", quirks[0])
	})

	t.Run("sparse persona padded with fallbacks", func(t *testing.T) {
		quirks := ExtractQuirks("calm")
		require.Len(t, quirks, 3)
		assert.Equal(t, "calm", quirks[0])
		assert.Equal(t, "asks unusual questions", quirks[1])
		assert.Equal(t, "connects distant concepts", quirks[2])
	})

	t.Run("empty persona yields all fallbacks", func(t *testing.T) {
		assert.Equal(t, []string{
			"asks unusual questions",
			"connects distant concepts",
			"prefers practical experiments",
		}, ExtractQuirks(""))
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		quirks := ExtractQuirks("calm. calm. calm. calm.")
		assert.Equal(t, "calm", quirks[0])
		assert.Equal(t, "asks unusual questions", quirks[1])
	})
}

func TestNewMediator(t *testing.T) {
	m := NewMediator()
	assert.Equal(t, "The Chair", m.Name)
	assert.Equal(t, RoleMediator, m.Role)
	assert.Equal(t, 0.7, m.Energy)
	assert.Len(t, m.Quirks, 3)
	require.NoError(t, ValidateAgent(m))

	// The mediator identity is fixed across sessions.
	assert.Equal(t, m.ID, NewMediator().ID)
}

func TestNewUserAgents(t *testing.T) {
	inputs := []UserAgentInput{
		{Name: "Maya", PersonaText: "Optimistic planner, loves pilots and rapid feedback", Energy: 0.8, MBTIType: "entp"},
		{Name: "Viktor", PersonaText: "Skeptical analyst who checks failure modes first", Energy: 0.3},
	}

	agents, err := NewUserAgents("city transit", inputs)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	maya := agents[0]
	assert.Equal(t, RoleUser, maya.Role)
	assert.Equal(t, "ENTP", maya.MBTIType)
	assert.Len(t, maya.Quirks, 3)
	assert.Equal(t, "Maya approaches city transit by emphasizing optimistic planner to find constructive progress.", maya.Stance)

	// Resubmission produces identical ids.
	again, err := NewUserAgents("city transit", inputs)
	require.NoError(t, err)
	assert.Equal(t, maya.ID, again[0].ID)
	assert.Equal(t, agents[1].ID, again[1].ID)
}

func TestNewUserAgentsValidation(t *testing.T) {
	tests := []struct {
		name  string
		input UserAgentInput
	}{
		{"empty name", UserAgentInput{Name: "  ", PersonaText: "something", Energy: 0.5}},
		{"empty persona", UserAgentInput{Name: "A", PersonaText: " ", Energy: 0.5}},
		{"energy above one", UserAgentInput{Name: "A", PersonaText: "fine persona", Energy: 1.2}},
		{"negative energy", UserAgentInput{Name: "A", PersonaText: "fine persona", Energy: -0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUserAgents("topic", []UserAgentInput{tt.input})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestTopicChangeStance(t *testing.T) {
	got := TopicChangeStance("Maya", "ocean cleanup")
	assert.Equal(t, "Maya approaches ocean cleanup constructively while staying adaptable.", got)
}

func TestNormalizeStance(t *testing.T) {
	got, err := NormalizeStance("  spread   out   words  ")
	require.NoError(t, err)
	assert.Equal(t, "spread out words.", got)

	got, err = NormalizeStance("already done!")
	require.NoError(t, err)
	assert.Equal(t, "already done!", got)

	_, err = NormalizeStance("   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
