package names

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// InitialMatchScore is awarded when name agrees with a known key token by
// token except that name abbreviates a spelled-out token to its initial
// ("j smith" against "john smith"), provided the final tokens are identical.
const InitialMatchScore = 90

// conflictRatio is the token similarity below which two spelled-out tokens
// at the same position name different people.
const conflictRatio = 60

// Similarity scores a normalized name against a known key in [0, 100]. The
// base score is the Levenshtein ratio 100*(1 - distance/longer length). It
// is raised to InitialMatchScore only when name is the abbreviated side, so
// a stored abbreviation never vouches for a new spelled-out name.
func Similarity(name, known string) int {
	score := ratio(name, known)
	if score < InitialMatchScore && abbreviates(name, known) {
		score = InitialMatchScore
	}
	return score
}

// Conflicts reports whether two keys with the same number of tokens spell
// out clearly different names at some position, as "jane smith" and
// "john smith" do. Initials never conflict.
func Conflicts(a, b string) bool {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		x, y := ta[i], tb[i]
		if utf8.RuneCountInString(x) < 2 || utf8.RuneCountInString(y) < 2 {
			continue
		}
		if ratio(x, y) < conflictRatio {
			return true
		}
	}
	return false
}

func ratio(a, b string) int {
	if a == b {
		if a == "" {
			return 0
		}
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * float64(longest-dist) / float64(longest)))
}

// abbreviates reports whether name matches known token by token, with at
// least one of known's tokens shortened to its initial in name.
func abbreviates(name, known string) bool {
	tn, tk := strings.Fields(name), strings.Fields(known)
	if len(tn) != len(tk) || len(tn) < 2 {
		return false
	}
	if tn[len(tn)-1] != tk[len(tk)-1] {
		return false
	}

	abbreviated := false
	for i := range tn {
		x, y := tn[i], tk[i]
		if x == y {
			continue
		}
		if isInitialOf(x, y) {
			abbreviated = true
			continue
		}
		return false
	}
	return abbreviated
}

// isInitialOf reports whether initial is the single first letter of word.
func isInitialOf(initial, word string) bool {
	if utf8.RuneCountInString(initial) != 1 || utf8.RuneCountInString(word) < 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(word)
	r, _ := utf8.DecodeRuneInString(initial)
	return r == first
}
