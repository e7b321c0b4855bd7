package sim

// StableIndex reduces a seed string to an index in [0, modulus). It is a pure
// function of the seed text (the sum of its rune values modulo modulus), so
// the same seed always selects the same auxiliary content across runs and
// platforms. A non-positive modulus yields 0.
func StableIndex(seed string, modulus int) int {
	if modulus <= 0 {
		return 0
	}
	sum := 0
	for _, r := range seed {
		sum += int(r)
	}
	return sum % modulus
}
