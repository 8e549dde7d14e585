package models

import (
	"slices"
	"strings"
)

// Person is a real-world individual mentioned across documents. Key is the
// normalized name and doubles as the primary alias.
type Person struct {
	Key            string    `json:"-"`
	Aliases        []string  `json:"aliases"`
	Context        string    `json:"context,omitempty"`
	FirstMentioned Timestamp `json:"first_mentioned"`
	Documents      []string  `json:"documents"`
}

// NewPerson creates a person with no linked documents yet.
func NewPerson(key, context string, firstMentioned Timestamp) *Person {
	return &Person{
		Key:            key,
		Aliases:        []string{key},
		Context:        strings.TrimSpace(context),
		FirstMentioned: firstMentioned,
		Documents:      []string{},
	}
}

// Clone returns a deep copy.
func (p *Person) Clone() *Person {
	c := *p
	c.Aliases = slices.Clone(p.Aliases)
	c.Documents = slices.Clone(p.Documents)
	if c.Documents == nil {
		c.Documents = []string{}
	}
	return &c
}

// HasAlias reports whether alias is recorded for this person.
func (p *Person) HasAlias(alias string) bool {
	return slices.Contains(p.Aliases, alias)
}

// AddAlias records alias if it is new. Returns true when added.
func (p *Person) AddAlias(alias string) bool {
	if alias == "" || p.HasAlias(alias) {
		return false
	}
	p.Aliases = append(p.Aliases, alias)
	return true
}

// AppendContext adds a note unless an existing note already contains it.
func (p *Person) AppendContext(note string) {
	note = strings.TrimSpace(note)
	if note == "" || strings.Contains(p.Context, note) {
		return
	}
	p.Context = strings.TrimSpace(p.Context + "\n" + note)
}

// NoteMention lowers FirstMentioned when date is earlier. Zero dates are ignored.
func (p *Person) NoteMention(date Timestamp) {
	if date.IsZero() {
		return
	}
	if p.FirstMentioned.IsZero() || date.Before(p.FirstMentioned) {
		p.FirstMentioned = date
	}
}

// HasDocument reports whether docID is linked.
func (p *Person) HasDocument(docID string) bool {
	return slices.Contains(p.Documents, docID)
}
