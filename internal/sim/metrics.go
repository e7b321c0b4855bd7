package sim

import (
	"math"
	"sort"
	"strings"
)

// StanceSignature reduces a stance to its set of significant tokens:
// lower-cased words stripped of surrounding punctuation, length >= 5.
func StanceSignature(stance string) map[string]struct{} {
	sig := make(map[string]struct{})
	for _, raw := range strings.Fields(strings.ToLower(stance)) {
		token := strings.Trim(raw, ".,;:!?")
		if len(token) >= 5 {
			sig[token] = struct{}{}
		}
	}
	return sig
}

// signatureSimilarity is the Jaccard similarity of two signatures. Two empty
// signatures are identical (1.0), not undefined.
func signatureSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		union = 1
	}
	return float64(inter) / float64(union)
}

// consensusScore averages pairwise signature similarity over all user agents.
// Fewer than two users means trivial consensus.
func consensusScore(users []*Agent) float64 {
	if len(users) < 2 {
		return 1.0
	}
	sigs := make([]map[string]struct{}, len(users))
	for i, u := range users {
		sigs[i] = StanceSignature(u.Stance)
	}
	total, pairs := 0.0, 0
	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			total += signatureSimilarity(sigs[i], sigs[j])
			pairs++
		}
	}
	return total / float64(pairs)
}

// coalitionIDs groups users by exact stance-signature equality and reports
// the largest group of size >= 2, member ids sorted ascending. When several
// groups tie for largest, the group containing the lowest member id wins,
// keeping the result independent of map iteration order.
func coalitionIDs(users []*Agent) []string {
	buckets := make(map[string][]string)
	for _, u := range users {
		sig := StanceSignature(u.Stance)
		tokens := make([]string, 0, len(sig))
		for t := range sig {
			tokens = append(tokens, t)
		}
		sort.Strings(tokens)
		key := strings.Join(tokens, " ")
		buckets[key] = append(buckets[key], u.ID)
	}

	var largest []string
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		if largest == nil || len(members) > len(largest) ||
			(len(members) == len(largest) && members[0] < largest[0]) {
			largest = members
		}
	}
	if largest == nil {
		return []string{}
	}
	return largest
}

// civilityScore scans the concatenated public history for blocked-term
// occurrences. Each hit costs 0.1 up to a 0.8 cap; empty history is fully
// civil.
func civilityScore(history []Turn) float64 {
	if len(history) == 0 {
		return 1.0
	}
	var b strings.Builder
	for i, turn := range history {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(turn.Message))
	}
	combined := b.String()

	hits := 0
	for _, term := range BlockedTerms {
		hits += strings.Count(combined, term)
	}
	penalty := math.Min(0.8, float64(hits)*0.1)
	return math.Max(0, 1.0-penalty)
}

// ComputeMetrics builds the full metrics snapshot for the current state.
// It recomputes from scratch over the accumulated history each round; cost
// grows with history length, which is acceptable at the target scale.
func ComputeMetrics(state *State) Metrics {
	users := state.Users()

	consensus := consensusScore(users)

	avgEnergy := 0.0
	for _, u := range users {
		avgEnergy += u.Energy
	}
	avgEnergy /= math.Max(float64(len(users)), 1)

	spread := 0.0
	for _, u := range users {
		spread += math.Abs(u.Energy - avgEnergy)
	}
	spread /= math.Max(float64(len(users)), 1)

	polarization := math.Min(1.0, math.Max(0.0, (1.0-consensus)*0.75+spread*0.5))

	return Metrics{
		ConsensusScore:     round3(consensus),
		PolarizationScore:  round3(polarization),
		DetectedCoalitions: coalitionIDs(users),
		CivilityScore:      round3(civilityScore(state.PublicHistory)),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
