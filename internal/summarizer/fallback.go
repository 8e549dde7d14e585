package summarizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxFallbackPeople caps the names the rule-based summarizer reports.
	MaxFallbackPeople = 10
	// FallbackContext is the context attached to rule-based candidates.
	FallbackContext = "Mentioned in document"
	// EmptySummary is returned for text with no readable content.
	EmptySummary = "No readable content found in document"
)

// nameRun matches a maximal run of capitalized words, with initials such as
// "A." allowed after the first word.
var nameRun = regexp.MustCompile(`\b[A-Z][a-z]+(?: (?:[A-Z]\.|[A-Z][a-z]+\b))+`)

var nameStopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "for": {}, "with": {},
	"dear": {}, "dearest": {}, "my": {}, "to": {}, "from": {},
}

var (
	letterPattern   = regexp.MustCompile(`\b(dear|to|from|my dear|dearest)\b`)
	datePattern     = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}\b`)
	locationPattern = regexp.MustCompile(`\b(in|at|from|to)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)
)

type topic struct {
	label    string
	keywords []string
}

var topics = []topic{
	{"family matters", []string{"family", "mother", "father", "brother", "sister", "son", "daughter"}},
	{"business/financial matters", []string{"business", "money", "payment", "account", "work", "job"}},
	{"health concerns", []string{"health", "sick", "ill", "doctor", "medicine", "hospital"}},
	{"travel plans", []string{"travel", "trip", "journey", "visit", "arrive", "depart"}},
}

// Fallback is a rule-based summarizer that needs no external service.
type Fallback struct{}

// NewFallback creates a rule-based summarizer.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Name implements Summarizer.
func (f *Fallback) Name() string { return "rules" }

// Summarize implements Summarizer. It never fails.
func (f *Fallback) Summarize(_ context.Context, req Request) (Result, error) {
	text := req.Text()
	return Result{
		Summary: Summarize(text),
		People:  ExtractNames(text),
		Source:  f.Name(),
	}, nil
}

// Summarize describes text by its shape: letter cues, the first people named,
// topic keywords, dates, locations and word count.
func Summarize(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return EmptySummary
	}

	lower := strings.ToLower(text)

	var involving string
	if people := ExtractNames(text); len(people) > 0 {
		var shown []string
		for _, p := range people[:min(3, len(people))] {
			shown = append(shown, p.Name)
		}
		involving = " involving " + strings.Join(shown, ", ")
	}

	var parts []string
	switch {
	case letterPattern.MatchString(strings.ToLower(lines[0])):
		parts = append(parts, "This appears to be a personal letter"+involving)
	case involving != "":
		parts = append(parts, "Document"+involving)
	default:
		parts = append(parts, "Document")
	}

	var found []string
	for _, t := range topics {
		if containsWord(lower, t.keywords) {
			found = append(found, t.label)
		}
	}
	if len(found) > 0 {
		parts = append(parts, "discusses "+strings.Join(found, ", "))
	}

	if dates := datePattern.FindAllString(lower, 2); len(dates) > 0 {
		parts = append(parts, "mentions dates: "+strings.Join(dates, ", "))
	}

	if matches := locationPattern.FindAllStringSubmatch(text, 2); len(matches) > 0 {
		var places []string
		for _, m := range matches {
			places = append(places, m[2])
		}
		parts = append(parts, "references locations: "+strings.Join(places, ", "))
	}

	parts = append(parts, fmt.Sprintf("(%d words)", len(strings.Fields(text))))
	return strings.Join(parts, ". ") + "."
}

// ExtractNames finds names of two or three capitalized words ("Karl Weber",
// "Mary Anne Jones", "John A. Smith") and returns at most MaxFallbackPeople
// in order of discovery. Leading stop words are dropped ("Dear Hans Meier").
// A run opening a sentence loses its first word when the rest of the run
// also appears elsewhere, so "Later Karl Weber" counts as "Karl Weber".
func ExtractNames(text string) []Candidate {
	type run struct {
		tokens  []string
		initial bool
	}

	var runs []run
	seenRuns := map[string]int{}
	for _, loc := range nameRun.FindAllStringIndex(text, -1) {
		tokens := trimStopWords(strings.Fields(text[loc[0]:loc[1]]))
		if len(tokens) == 0 {
			continue
		}
		runs = append(runs, run{tokens: tokens, initial: sentenceStart(text, loc[0])})
		seenRuns[strings.Join(tokens, " ")]++
	}

	var names []string
	for _, r := range runs {
		tokens := r.tokens
		if r.initial && len(tokens) >= 3 {
			if tail := strings.Join(tokens[1:], " "); seenRuns[tail] > 0 && validName(tokens[1:]) {
				tokens = tokens[1:]
			}
		}
		if !validName(tokens) {
			continue
		}
		names = addName(names, strings.Join(tokens, " "))
		if len(names) == MaxFallbackPeople {
			break
		}
	}

	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		out = append(out, Candidate{Name: name, Context: FallbackContext})
	}
	return out
}

// validName accepts two or three words that start and end with a full word;
// only a middle word may be an initial.
func validName(tokens []string) bool {
	if len(tokens) < 2 || len(tokens) > 3 {
		return false
	}
	return !isInitial(tokens[0]) && !isInitial(tokens[len(tokens)-1])
}

func isInitial(token string) bool {
	return len(token) == 2 && token[1] == '.'
}

func trimStopWords(tokens []string) []string {
	for len(tokens) > 0 {
		if _, ok := nameStopWords[strings.ToLower(tokens[0])]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	return tokens
}

// sentenceStart reports whether offset i begins the text, a line or a
// sentence.
func sentenceStart(text string, i int) bool {
	before := strings.TrimRight(text[:i], " \t")
	if before == "" || strings.HasSuffix(before, "\n") {
		return true
	}
	switch before[len(before)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// addName appends name unless a known name already contains it. A longer
// name replaces a shorter known one it contains.
func addName(names []string, name string) []string {
	for i, known := range names {
		switch {
		case strings.Contains(known, name):
			return names
		case strings.Contains(name, known):
			names[i] = name
			return names
		}
	}
	return append(names, name)
}

func containsWord(lower string, words []string) bool {
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	for _, tok := range tokens {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}
