package store

import (
	"encoding/json"
	"fmt"

	"github.com/gzentall/ocrstore/pkg/models"
)

// Snapshot is a consistent copy of the whole store.
type Snapshot struct {
	Metadata  []byte // metadata.json as committed
	Documents []models.Document
	People    []models.Person
	Errors    []error // per-document read failures
}

// Snapshot copies the index and every readable body under one lock.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := json.MarshalIndent(s.cat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode metadata: %v", models.ErrIO, err)
	}

	snap := &Snapshot{Metadata: meta}
	for _, row := range s.cat.Summaries() {
		doc, err := s.readBody(row.ID)
		if err != nil {
			snap.Errors = append(snap.Errors, &LoadError{ID: row.ID, Err: err})
			continue
		}
		snap.Documents = append(snap.Documents, doc)
	}
	for _, key := range s.cat.PersonKeys() {
		p, _ := s.cat.Person(key)
		snap.People = append(snap.People, *p.Clone())
	}
	return snap, nil
}
