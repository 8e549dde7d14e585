// Package identity decides which known person a raw name refers to.
//
// Resolution is exact key first, then the best fuzzy match over every alias
// of every person, then creation of a new person. It runs against a Registry
// the caller owns and holds no state of its own beyond thresholds.
package identity

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gzentall/ocrstore/internal/names"
	"github.com/gzentall/ocrstore/pkg/models"
)

const (
	// DefaultMergeThreshold is the minimum similarity at which a new name is
	// folded into an existing person.
	DefaultMergeThreshold = 85
	// DefaultSearchThreshold is the minimum similarity reported by Search.
	DefaultSearchThreshold = 70
)

// Registry is the person set a Resolver reads and extends.
type Registry interface {
	Person(key string) (*models.Person, bool)
	PersonKeys() []string
	AddPerson(p *models.Person)
}

// Config holds resolver thresholds.
type Config struct {
	MergeThreshold  int
	SearchThreshold int
}

// Resolver matches names to persons.
type Resolver struct {
	mergeThreshold  int
	searchThreshold int
}

// Match is the outcome of resolving one name.
type Match struct {
	Key     string
	Score   int
	Created bool
}

// Candidate is one Search hit.
type Candidate struct {
	Key   string `json:"key"`
	Score int    `json:"score"`
	Alias string `json:"alias"`
}

// New creates a resolver. Zero thresholds fall back to the defaults.
func New(cfg Config) *Resolver {
	r := &Resolver{
		mergeThreshold:  cfg.MergeThreshold,
		searchThreshold: cfg.SearchThreshold,
	}
	if r.mergeThreshold <= 0 {
		r.mergeThreshold = DefaultMergeThreshold
	}
	if r.searchThreshold <= 0 {
		r.searchThreshold = DefaultSearchThreshold
	}
	return r
}

// MergeThreshold returns the configured merge threshold.
func (r *Resolver) MergeThreshold() int { return r.mergeThreshold }

// SearchThreshold returns the configured search threshold.
func (r *Resolver) SearchThreshold() int { return r.searchThreshold }

// Resolve returns the key of the person raw refers to, creating one when
// nothing scores at or above the merge threshold. A matched person absorbs
// the new spelling as an alias, the context note and the mention date. A
// created person has no documents; linking is the caller's job.
func (r *Resolver) Resolve(reg Registry, raw, context string, date models.Timestamp) (Match, error) {
	key := names.Normalize(raw)
	if key == "" {
		return Match{}, fmt.Errorf("%w: %q", models.ErrInvalidName, raw)
	}

	if p, ok := reg.Person(key); ok {
		p.AppendContext(context)
		p.NoteMention(date)
		return Match{Key: key, Score: 100}, nil
	}

	best, score := r.bestMatch(reg, key)
	if best != nil && score >= r.mergeThreshold {
		if best.AddAlias(key) {
			slog.Debug("merged name into existing person", "name", key, "person", best.Key, "score", score)
		}
		best.AppendContext(context)
		best.NoteMention(date)
		return Match{Key: best.Key, Score: score}, nil
	}

	reg.AddPerson(models.NewPerson(key, context, date))
	slog.Debug("created person", "person", key)
	return Match{Key: key, Score: 100, Created: true}, nil
}

// bestMatch scores key against every alias of every person and keeps each
// person's best alias. Persons whose spelled-out names all conflict with key
// are skipped. Ties go to the person with more documents, then the lexically
// smaller key.
func (r *Resolver) bestMatch(reg Registry, key string) (*models.Person, int) {
	var (
		best      *models.Person
		bestScore = -1
	)
	for _, k := range reg.PersonKeys() {
		p, ok := reg.Person(k)
		if !ok || conflicting(p, key) {
			continue
		}
		score, _ := personScore(p, key)
		switch {
		case score > bestScore:
		case score == bestScore && len(p.Documents) > len(best.Documents):
		default:
			continue
		}
		best, bestScore = p, score
	}
	return best, bestScore
}

// Search returns persons whose best alias scores at or above threshold
// against the normalized query, best first. threshold <= 0 uses the
// configured search threshold.
func (r *Resolver) Search(reg Registry, query string, threshold int) []Candidate {
	if threshold <= 0 {
		threshold = r.searchThreshold
	}
	key := names.Normalize(query)
	if key == "" {
		return nil
	}

	var out []Candidate
	for _, k := range reg.PersonKeys() {
		p, ok := reg.Person(k)
		if !ok {
			continue
		}
		score, alias := personScore(p, key)
		if score >= threshold {
			out = append(out, Candidate{Key: k, Score: score, Alias: alias})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// personScore is the best similarity between key and any of the person's
// aliases, the key included.
func personScore(p *models.Person, key string) (int, string) {
	best, bestAlias := names.Similarity(key, p.Key), p.Key
	for _, alias := range p.Aliases {
		if s := names.Similarity(key, alias); s > best {
			best, bestAlias = s, alias
		}
	}
	return best, bestAlias
}

// conflicting reports whether the person has spelled-out aliases and key
// conflicts with every one of them. Abbreviated aliases ("j smith") say
// nothing about which first name was meant and are ignored.
func conflicting(p *models.Person, key string) bool {
	full := 0
	for _, alias := range append([]string{p.Key}, p.Aliases...) {
		if abbreviated(alias) {
			continue
		}
		full++
		if !names.Conflicts(key, alias) {
			return false
		}
	}
	return full > 0
}

func abbreviated(alias string) bool {
	for _, tok := range strings.Fields(alias) {
		if utf8.RuneCountInString(tok) == 1 {
			return true
		}
	}
	return false
}
