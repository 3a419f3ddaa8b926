package dialogue

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// phoneticThreshold is the minimum Jaro-Winkler score required for a
// phonetically-matched option to be accepted.
const phoneticThreshold = 0.80

// ResolveOption maps a normalized spoken answer to one of the slot's options.
//
// Resolution proceeds in three passes:
//
//  1. Substring containment: the first option that appears as a substring of
//     the answer wins ("i'd say high priority" → "high").
//  2. Phonetic: each word of the answer is compared to each option by Double
//     Metaphone code overlap, ranked by Jaro-Winkler similarity, so common
//     misrecognitions ("hi priority") still resolve.
//  3. Fallback: the configured fallback option.
func ResolveOption(answer string, options []string, fallback string) string {
	for _, opt := range options {
		if strings.Contains(answer, opt) {
			return opt
		}
	}

	if best, ok := phoneticMatch(answer, options); ok {
		return best
	}

	return fallback
}

// phoneticMatch returns the option with the best Jaro-Winkler score among
// those sharing a Double Metaphone code with any word of the answer.
func phoneticMatch(answer string, options []string) (string, bool) {
	best := ""
	bestScore := 0.0

	for _, word := range strings.Fields(answer) {
		w1, w2 := matchr.DoubleMetaphone(word)
		for _, opt := range options {
			o1, o2 := matchr.DoubleMetaphone(opt)
			if !codesOverlap(w1, w2, o1, o2) {
				continue
			}
			score := matchr.JaroWinkler(word, opt, true)
			if score > bestScore {
				best, bestScore = opt, score
			}
		}
	}

	if bestScore >= phoneticThreshold {
		return best, true
	}
	return "", false
}

func codesOverlap(a1, a2, b1, b2 string) bool {
	for _, a := range []string{a1, a2} {
		if a == "" {
			continue
		}
		if a == b1 || (b2 != "" && a == b2) {
			return true
		}
	}
	return false
}

// skipWords are the answers that signal "leave this field unset".
var skipWords = map[string]bool{
	"":        true,
	"skip":    true,
	"skip it": true,
	"no":      true,
	"none":    true,
	"nothing": true,
	"nope":    true,
}

// IsSkip reports whether a normalized answer signals skip/negative/empty.
func IsSkip(answer string) bool {
	return skipWords[answer]
}

// yesWords are the answers accepted as affirmative in the reminder negotiation.
var yesWords = map[string]bool{
	"yes":        true,
	"yeah":       true,
	"yep":        true,
	"sure":       true,
	"ok":         true,
	"okay":       true,
	"yes please": true,
	"please":     true,
}

// IsYes reports whether a normalized answer is affirmative.
func IsYes(answer string) bool {
	return yesWords[answer]
}
