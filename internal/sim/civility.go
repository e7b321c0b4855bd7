package sim

import (
	"regexp"
	"strings"
)

// BlockedTerms are redacted from every turn and counted against the civility
// score. Matching is case-insensitive and substring-based: a short term may
// match inside a longer word. That is the documented behavior, not a defect.
var BlockedTerms = []string{
	"idiot",
	"stupid",
	"hate",
	"shut up",
	"dumb",
	"worthless",
}

const (
	civilReplacement = "respectfully disagree"
	civilFallback    = "I will stay constructive."
)

var blockedPattern = func() *regexp.Regexp {
	quoted := make([]string, len(BlockedTerms))
	for i, term := range BlockedTerms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	return regexp.MustCompile("(?i)(" + strings.Join(quoted, "|") + ")")
}()

// EnforceCivility redacts blocked terms, collapses internal whitespace, and
// guarantees terminal punctuation. Empty input yields a fixed fallback
// sentence. The function is total and idempotent on clean input.
func EnforceCivility(text string) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	sanitized := blockedPattern.ReplaceAllString(cleaned, civilReplacement)
	if sanitized == "" {
		return civilFallback
	}
	if !isTerminal(sanitized[len(sanitized)-1]) {
		sanitized += "."
	}
	return sanitized
}

// TruncateToWords keeps at most maxWords words. Truncated output is stripped
// of a trailing comma, semicolon, or colon and given terminal punctuation.
func TruncateToWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.TrimSpace(text)
	}
	shortened := strings.TrimRight(strings.Join(words[:maxWords], " "), ",;:")
	if shortened != "" && !isTerminal(shortened[len(shortened)-1]) {
		shortened += "."
	}
	return shortened
}

func isTerminal(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}
