package sim

import (
	"fmt"
	"sort"
	"strings"
)

// RosterError reports a violated speaker-selection precondition. It is a
// client-input error: the requested round is not run and state is unchanged.
type RosterError struct {
	Condition string
}

func (e *RosterError) Error() string {
	return fmt.Sprintf("invalid roster: %s", e.Condition)
}

// selectionTokens is the coarse token set used for selection distance:
// lower-cased stance words of length >= 4 with punctuation stripped.
// The metrics engine uses a stricter >= 5 cut; the two serve different
// purposes (diversity vs. consensus grouping) and are kept separate.
func selectionTokens(stance string) map[string]struct{} {
	tokens := make(map[string]struct{})
	lowered := strings.ReplaceAll(strings.ToLower(stance), ".", "")
	for _, raw := range strings.Fields(lowered) {
		token := strings.Trim(raw, ",;:!?")
		if len(token) >= 4 {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

// distance is the pairwise diversity measure between two user agents:
// 0.7 × stance dissimilarity + 0.3 × energy gap. Two empty token sets are
// considered identical, not maximally distant.
func distance(a, b *Agent) float64 {
	ta := selectionTokens(a.Stance)
	tb := selectionTokens(b.Stance)

	var stanceGap float64
	if len(ta) > 0 || len(tb) > 0 {
		inter := 0
		for t := range ta {
			if _, ok := tb[t]; ok {
				inter++
			}
		}
		union := len(ta) + len(tb) - inter
		if union == 0 {
			union = 1
		}
		stanceGap = 1.0 - float64(inter)/float64(union)
	}

	energyGap := a.Energy - b.Energy
	if energyGap < 0 {
		energyGap = -energyGap
	}
	return 0.7*stanceGap + 0.3*energyGap
}

// pickMostDistant returns the pool agent whose average distance to the
// already-selected anchors is maximal. Ties break toward the
// lexicographically greatest id so selection stays fully deterministic.
func pickMostDistant(pool, anchors []*Agent) *Agent {
	var best *Agent
	bestScore := -1.0
	for _, candidate := range pool {
		total := 0.0
		for _, anchor := range anchors {
			total += distance(candidate, anchor)
		}
		n := len(anchors)
		if n == 0 {
			n = 1
		}
		score := total / float64(n)
		if best == nil || score > bestScore || (score == bestScore && candidate.ID > best.ID) {
			best = candidate
			bestScore = score
		}
	}
	return best
}

// SelectSpeakers returns the ordered speaker list for a round: the mediator
// first, then four user agents chosen by a farthest-point heuristic: the two
// energy extremes as anchors, then greedy diversity maximization. It is a
// pure function of the roster; a RosterError is returned when the roster does
// not hold exactly one mediator and at least four users.
func SelectSpeakers(agents []*Agent) ([]*Agent, error) {
	var mediators, users []*Agent
	for _, a := range agents {
		switch a.Role {
		case RoleMediator:
			mediators = append(mediators, a)
		case RoleUser:
			users = append(users, a)
		}
	}
	if len(mediators) != 1 {
		return nil, &RosterError{Condition: fmt.Sprintf("exactly 1 mediator is required, found %d", len(mediators))}
	}
	if len(users) < 4 {
		return nil, &RosterError{Condition: fmt.Sprintf("at least 4 user agents are required, found %d", len(users))}
	}

	ordered := append([]*Agent(nil), users...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Energy != ordered[j].Energy {
			return ordered[i].Energy < ordered[j].Energy
		}
		return ordered[i].ID < ordered[j].ID
	})

	low, high := ordered[0], ordered[len(ordered)-1]
	selected := []*Agent{high}
	if high.ID != low.ID {
		selected = append(selected, low)
	}

	inSelected := func(id string) bool {
		for _, a := range selected {
			if a.ID == id {
				return true
			}
		}
		return false
	}

	remaining := make([]*Agent, 0, len(users))
	for _, u := range users {
		if !inSelected(u.ID) {
			remaining = append(remaining, u)
		}
	}
	for len(selected) < 4 && len(remaining) > 0 {
		pick := pickMostDistant(remaining, selected)
		selected = append(selected, pick)
		next := remaining[:0]
		for _, u := range remaining {
			if u.ID != pick.ID {
				next = append(next, u)
			}
		}
		remaining = next
	}

	return append([]*Agent{mediators[0]}, selected[:4]...), nil
}
