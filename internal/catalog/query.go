package catalog

import (
	"sort"
	"strings"

	"github.com/gzentall/ocrstore/pkg/models"
)

// Mention counts how many documents mention a person.
type Mention struct {
	Key       string `json:"key"`
	Documents int    `json:"documents"`
}

// Stats summarizes the catalog.
type Stats struct {
	Documents     int              `json:"documents"`
	People        int              `json:"people"`
	ByLanguage    map[string]int   `json:"by_language"`
	Earliest      models.Timestamp `json:"earliest"`
	Latest        models.Timestamp `json:"latest"`
	MostMentioned []Mention        `json:"most_mentioned"`
}

// Summaries returns every index row, newest first, ties broken by ID.
func (c *Catalog) Summaries() []models.DocumentSummary {
	out := make([]models.DocumentSummary, 0, len(c.Documents))
	for id, entry := range c.Documents {
		out = append(out, models.DocumentSummary{ID: id, DocumentEntry: entry})
	}
	sortSummaries(out)
	return out
}

// Search returns index rows whose title or summary contains query,
// case-insensitively, newest first.
func (c *Catalog) Search(query string) []models.DocumentSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.DocumentSummary
	for id, entry := range c.Documents {
		if strings.Contains(strings.ToLower(entry.Title), q) ||
			strings.Contains(strings.ToLower(entry.Summary), q) {
			out = append(out, models.DocumentSummary{ID: id, DocumentEntry: entry})
		}
	}
	sortSummaries(out)
	return out
}

// Timeline returns the index rows linked to a person, oldest first.
// Dangling IDs are skipped.
func (c *Catalog) Timeline(key string) ([]models.DocumentSummary, bool) {
	p, ok := c.People[key]
	if !ok {
		return nil, false
	}
	out := make([]models.DocumentSummary, 0, len(p.Documents))
	for _, id := range p.Documents {
		entry, ok := c.Documents[id]
		if !ok {
			continue
		}
		out = append(out, models.DocumentSummary{ID: id, DocumentEntry: entry})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DateProcessed.Equal(out[j].DateProcessed.Time) {
			return out[i].DateProcessed.Before(out[j].DateProcessed)
		}
		return out[i].ID < out[j].ID
	})
	return out, true
}

// MostMentioned ranks persons by document count descending, then key.
// n <= 0 returns the full ranking.
func (c *Catalog) MostMentioned(n int) []Mention {
	ranked := make([]Mention, 0, len(c.People))
	for key, p := range c.People {
		ranked = append(ranked, Mention{Key: key, Documents: len(p.Documents)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Documents != ranked[j].Documents {
			return ranked[i].Documents > ranked[j].Documents
		}
		return ranked[i].Key < ranked[j].Key
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Stats computes totals, language counts, the date range and the top five
// most mentioned persons.
func (c *Catalog) Stats() Stats {
	s := Stats{
		Documents:     len(c.Documents),
		People:        len(c.People),
		ByLanguage:    make(map[string]int),
		MostMentioned: c.MostMentioned(5),
	}
	for _, entry := range c.Documents {
		s.ByLanguage[entry.SourceLanguage]++
		if entry.DateProcessed.IsZero() {
			continue
		}
		if s.Earliest.IsZero() || entry.DateProcessed.Before(s.Earliest) {
			s.Earliest = entry.DateProcessed
		}
		if s.Latest.IsZero() || s.Latest.Before(entry.DateProcessed) {
			s.Latest = entry.DateProcessed
		}
	}
	return s
}

func sortSummaries(out []models.DocumentSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateProcessed.Equal(out[j].DateProcessed.Time) {
			return out[j].DateProcessed.Before(out[i].DateProcessed)
		}
		return out[i].ID < out[j].ID
	})
}
