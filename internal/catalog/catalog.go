// Package catalog holds the metadata index: one row per document and one
// record per person, persisted together as a single JSON file.
//
// A Catalog is a plain in-memory value with no locking of its own. The store
// owns exactly one, mutates a Clone inside its critical section and swaps it
// in only after the clone has been saved.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/gzentall/ocrstore/internal/fileutil"
	"github.com/gzentall/ocrstore/pkg/models"
)

// Catalog is the document index and person index.
type Catalog struct {
	Documents   map[string]models.DocumentEntry `json:"documents"`
	People      map[string]*models.Person       `json:"people"`
	LastUpdated models.Timestamp                `json:"last_updated"`
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		Documents: make(map[string]models.DocumentEntry),
		People:    make(map[string]*models.Person),
	}
}

// Load reads a catalog file. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("%w: read metadata: %v", models.ErrIO, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes catalog JSON. Empty data yields an empty catalog.
func Parse(data []byte) (*Catalog, error) {
	if len(data) == 0 {
		return New(), nil
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: parse metadata: %v", models.ErrCorruption, err)
	}
	if c.Documents == nil {
		c.Documents = make(map[string]models.DocumentEntry)
	}
	if c.People == nil {
		c.People = make(map[string]*models.Person)
	}
	for key, p := range c.People {
		if p == nil {
			delete(c.People, key)
			continue
		}
		p.Key = key
		if p.Documents == nil {
			p.Documents = []string{}
		}
	}
	return c, nil
}

// Save stamps LastUpdated and writes the catalog atomically.
func (c *Catalog) Save(path string, now time.Time) error {
	c.LastUpdated = models.NewTimestamp(now)
	if err := fileutil.WriteJSONAtomic(path, c); err != nil {
		return fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Documents:   make(map[string]models.DocumentEntry, len(c.Documents)),
		People:      make(map[string]*models.Person, len(c.People)),
		LastUpdated: c.LastUpdated,
	}
	for id, entry := range c.Documents {
		out.Documents[id] = entry
	}
	for key, p := range c.People {
		out.People[key] = p.Clone()
	}
	return out
}

// Person returns the person stored under key.
func (c *Catalog) Person(key string) (*models.Person, bool) {
	p, ok := c.People[key]
	return p, ok
}

// PersonKeys returns every person key in lexical order.
func (c *Catalog) PersonKeys() []string {
	keys := make([]string, 0, len(c.People))
	for key := range c.People {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// AddPerson stores p under its key, replacing any previous record.
func (c *Catalog) AddPerson(p *models.Person) {
	c.People[p.Key] = p
}

// PutDocument inserts or replaces the index row for id.
func (c *Catalog) PutDocument(id string, entry models.DocumentEntry) {
	c.Documents[id] = entry
}

// HasDocument reports whether id has an index row.
func (c *Catalog) HasDocument(id string) bool {
	_, ok := c.Documents[id]
	return ok
}

// RemoveDocument drops the index row for id and unlinks it from every
// person. Returns the keys of persons deleted because they lost their last
// document.
func (c *Catalog) RemoveDocument(id string) []string {
	delete(c.Documents, id)
	return c.UnlinkAll(id)
}

// Link adds docID to the person's documents.
func (c *Catalog) Link(key, docID string) error {
	p, ok := c.People[key]
	if !ok {
		return fmt.Errorf("%w: person %q", models.ErrNotFound, key)
	}
	if !p.HasDocument(docID) {
		p.Documents = append(p.Documents, docID)
	}
	return nil
}

// Unlink removes docID from the person's documents, deleting the person when
// none remain. Unlinking an absent document or person is a no-op. Returns
// true if the person was deleted.
func (c *Catalog) Unlink(key, docID string) bool {
	p, ok := c.People[key]
	if !ok {
		return false
	}
	if i := slices.Index(p.Documents, docID); i >= 0 {
		p.Documents = slices.Delete(p.Documents, i, i+1)
	}
	if len(p.Documents) == 0 {
		delete(c.People, key)
		return true
	}
	return false
}

// UnlinkAll removes docID from every person. Returns deleted person keys in
// lexical order.
func (c *Catalog) UnlinkAll(docID string) []string {
	var deleted []string
	for _, key := range c.PersonKeys() {
		if !c.People[key].HasDocument(docID) {
			continue
		}
		if c.Unlink(key, docID) {
			deleted = append(deleted, key)
		}
	}
	return deleted
}

// RemovePerson deletes a person and returns the removed record.
func (c *Catalog) RemovePerson(key string) (*models.Person, error) {
	p, ok := c.People[key]
	if !ok {
		return nil, fmt.Errorf("%w: person %q", models.ErrNotFound, key)
	}
	delete(c.People, key)
	return p, nil
}

// RenamePerson moves the person at oldKey to newKey and records newKey as an
// alias; oldKey stays an alias. If newKey already belongs to another person
// the two records are merged into that one.
func (c *Catalog) RenamePerson(oldKey, newKey string) (*models.Person, error) {
	p, ok := c.People[oldKey]
	if !ok {
		return nil, fmt.Errorf("%w: person %q", models.ErrNotFound, oldKey)
	}
	if oldKey == newKey {
		return p, nil
	}

	delete(c.People, oldKey)

	if target, exists := c.People[newKey]; exists {
		for _, alias := range p.Aliases {
			target.AddAlias(alias)
		}
		for _, id := range p.Documents {
			if !target.HasDocument(id) {
				target.Documents = append(target.Documents, id)
			}
		}
		target.NoteMention(p.FirstMentioned)
		target.AppendContext(p.Context)
		return target, nil
	}

	p.Key = newKey
	p.AddAlias(newKey)
	c.People[newKey] = p
	return p, nil
}
