// Package names canonicalizes person names into comparable keys and scores
// how similar two keys are.
//
// A key is lower-case, free of diacritics, punctuation, honorific titles and
// trailing generational suffixes, with single spaces between tokens.
// Normalize is idempotent.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// titles are dropped wherever they appear as a whole word.
var titles = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "rev": {}, "sir": {}, "lady": {},
}

// suffixes are dropped only as trailing words so a middle initial "V" survives.
var suffixes = map[string]struct{}{
	"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}, "v": {},
}

// Normalize converts a raw name into its registry key. Empty or
// title-only input yields "".
func Normalize(name string) string {
	folded := fold(strings.ToLower(name))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, ok := titles[tok]; ok {
			continue
		}
		kept = append(kept, tok)
	}
	for len(kept) > 0 {
		if _, ok := suffixes[kept[len(kept)-1]]; !ok {
			break
		}
		kept = kept[:len(kept)-1]
	}

	return strings.Join(kept, " ")
}

// fold strips combining marks so "Müller" and "Muller" share a key.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
