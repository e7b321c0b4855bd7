package api

import "github.com/agora-dev/agora/internal/sim"

// DemoRoster returns four contrasting participants for quick demos.
func DemoRoster() []sim.UserAgentInput {
	return []sim.UserAgentInput{
		{
			Name:        "Maya",
			PersonaText: "Optimistic urban planner who frames ideas in pilots and prototypes, loves bold experiments and rapid feedback loops",
			Energy:      0.85,
			MBTIType:    "ENTP",
		},
		{
			Name:        "Viktor",
			PersonaText: "Skeptical risk analyst who insists on failure modes, asks for evidence before commitments and prefers slow careful rollouts",
			Energy:      0.35,
			MBTIType:    "ISTJ",
		},
		{
			Name:        "Amara",
			PersonaText: "Community organizer focused on who gets left out, keeps pulling the debate back to lived experience and practical access",
			Energy:      0.7,
			MBTIType:    "ENFJ",
		},
		{
			Name:        "Jun",
			PersonaText: "Quiet systems thinker who connects distant concepts, maps second-order effects and writes everything down before speaking",
			Energy:      0.45,
			MBTIType:    "INTP",
		},
	}
}
