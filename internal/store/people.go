package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gzentall/ocrstore/internal/catalog"
	"github.com/gzentall/ocrstore/internal/events"
	"github.com/gzentall/ocrstore/internal/identity"
	"github.com/gzentall/ocrstore/internal/names"
	"github.com/gzentall/ocrstore/pkg/models"
)

// People returns a copy of every person, ordered by key.
func (s *Store) People() []models.Person {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Person, 0, len(s.cat.People))
	for _, key := range s.cat.PersonKeys() {
		p, _ := s.cat.Person(key)
		out = append(out, *p.Clone())
	}
	return out
}

// Person returns a copy of the person stored under key.
func (s *Store) Person(key string) (models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.cat.Person(key)
	if !ok {
		return models.Person{}, fmt.Errorf("%w: person %q", models.ErrNotFound, key)
	}
	return *p.Clone(), nil
}

// PersonDocuments returns the person's documents, oldest first.
func (s *Store) PersonDocuments(key string) ([]models.DocumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.cat.Timeline(key)
	if !ok {
		return nil, fmt.Errorf("%w: person %q", models.ErrNotFound, key)
	}
	return rows, nil
}

// SearchPeople ranks persons by fuzzy similarity of their key or aliases to
// query. threshold <= 0 uses the configured search threshold.
func (s *Store) SearchPeople(query string, threshold int) []identity.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Search(s.cat, query, threshold)
}

// FindDocumentsByPerson returns documents linked to any person whose key or
// alias contains the normalized query, newest first.
func (s *Store) FindDocumentsByPerson(query string) []models.DocumentSummary {
	q := names.Normalize(query)
	if q == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var out []models.DocumentSummary
	for _, key := range s.cat.PersonKeys() {
		p, _ := s.cat.Person(key)
		if !matchesPerson(p, q) {
			continue
		}
		for _, id := range p.Documents {
			entry, ok := s.cat.Documents[id]
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, models.DocumentSummary{ID: id, DocumentEntry: entry})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateProcessed.Equal(out[j].DateProcessed.Time) {
			return out[j].DateProcessed.Before(out[i].DateProcessed)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matchesPerson(p *models.Person, q string) bool {
	if strings.Contains(p.Key, q) {
		return true
	}
	for _, alias := range p.Aliases {
		if strings.Contains(alias, q) {
			return true
		}
	}
	return false
}

// AddPerson resolves rawName, links the resulting person to the document and
// records the mention in the document body. Returns the person key.
func (s *Store) AddPerson(ctx context.Context, docID, rawName, note string) (string, error) {
	if !models.ValidDocumentID(docID) {
		return "", fmt.Errorf("%w: document %q", models.ErrNotFound, docID)
	}

	s.mu.Lock()
	doc, err := s.readBody(docID)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	next := s.cat.Clone()
	match, err := s.resolver.Resolve(next, rawName, note, doc.DateProcessed)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	ensureLink(next, match.Key, docID, doc.DateProcessed)

	if !hasMention(doc, match.Key, rawName) {
		doc.People = append(doc.People, models.PersonMention{
			OriginalName:   rawName,
			NormalizedName: match.Key,
			Context:        note,
		})
	}
	next.PutDocument(docID, doc.Entry())

	if err := s.commitWithBodies(next, []models.Document{doc}); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	s.emit(ctx, events.Event{Kind: events.PersonLinked, DocumentID: docID, PersonKey: match.Key, Documents: []models.Document{doc}})
	return match.Key, nil
}

// LinkPerson links an existing person to a document, adding a mention to the
// document body if it has none for that person.
func (s *Store) LinkPerson(ctx context.Context, key, docID string) error {
	if !models.ValidDocumentID(docID) {
		return fmt.Errorf("%w: document %q", models.ErrNotFound, docID)
	}

	s.mu.Lock()
	if _, ok := s.cat.Person(key); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: person %q", models.ErrNotFound, key)
	}
	doc, err := s.readBody(docID)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	next := s.cat.Clone()
	ensureLink(next, key, docID, doc.DateProcessed)
	if !hasMention(doc, key, "") {
		doc.People = append(doc.People, models.PersonMention{OriginalName: key, NormalizedName: key})
	}
	next.PutDocument(docID, doc.Entry())

	if err := s.commitWithBodies(next, []models.Document{doc}); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.emit(ctx, events.Event{Kind: events.PersonLinked, DocumentID: docID, PersonKey: key, Documents: []models.Document{doc}})
	return nil
}

// UnlinkPerson removes the link between a person and a document and strips
// the person's mentions from the document body. The person is deleted when
// it has no documents left.
func (s *Store) UnlinkPerson(ctx context.Context, key, docID string) error {
	s.mu.Lock()
	p, ok := s.cat.Person(key)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: person %q", models.ErrNotFound, key)
	}
	if !p.HasDocument(docID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: person %q is not linked to %q", models.ErrNotFound, key, docID)
	}

	next := s.cat.Clone()
	deleted := next.Unlink(key, docID)

	var bodies []models.Document
	doc, err := s.readBody(docID)
	switch {
	case err == nil:
		doc.People = stripMentions(doc.People, key)
		bodies = append(bodies, doc)
		if next.HasDocument(docID) {
			next.PutDocument(docID, doc.Entry())
		}
	case errors.Is(err, models.ErrNotFound):
		// Nothing to rewrite; the link was dangling.
	default:
		s.mu.Unlock()
		return err
	}

	if err := s.commitWithBodies(next, bodies); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if deleted {
		s.logger.Debug("person removed with last document", "person", key)
	}
	s.emit(ctx, events.Event{Kind: events.PersonUnlinked, DocumentID: docID, PersonKey: key, Documents: bodies})
	return nil
}

// RenamePerson moves a person to the key newName normalizes to and rewrites
// the normalized name in every linked document body. The old key stays as an
// alias. When the new key already belongs to another person the two are
// merged. newContext, when non-nil, replaces the person's context.
func (s *Store) RenamePerson(ctx context.Context, oldKey, newName string, newContext *string) (string, error) {
	newKey := names.Normalize(newName)
	if newKey == "" {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidName, newName)
	}

	s.mu.Lock()
	p, ok := s.cat.Person(oldKey)
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: person %q", models.ErrNotFound, oldKey)
	}
	docIDs := append([]string(nil), p.Documents...)

	next := s.cat.Clone()
	renamed, err := next.RenamePerson(oldKey, newKey)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	if newContext != nil {
		renamed.Context = strings.TrimSpace(*newContext)
	}

	bodies, err := s.rewriteMentions(next, docIDs, func(m models.PersonMention) (models.PersonMention, bool) {
		if m.NormalizedName != oldKey {
			return m, true
		}
		m.NormalizedName = newKey
		return m, true
	})
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	if err := s.commitWithBodies(next, bodies); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	s.logger.Debug("person renamed", "from", oldKey, "to", newKey, "documents", len(bodies))
	s.emit(ctx, events.Event{Kind: events.PersonRenamed, PersonKey: newKey, Documents: bodies})
	return newKey, nil
}

// RemovePerson deletes a person and strips its mentions from every linked
// document body, updating each document's people count.
func (s *Store) RemovePerson(ctx context.Context, key string) error {
	s.mu.Lock()
	next := s.cat.Clone()
	p, err := next.RemovePerson(key)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	bodies, err := s.rewriteMentions(next, p.Documents, func(m models.PersonMention) (models.PersonMention, bool) {
		return m, m.NormalizedName != key
	})
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if err := s.commitWithBodies(next, bodies); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.emit(ctx, events.Event{Kind: events.PersonRemoved, PersonKey: key, Documents: bodies})
	return nil
}

// rewriteMentions applies fn to every mention in the given documents and
// refreshes their index rows in next. fn returns false to drop a mention.
// Missing bodies are skipped; corrupt bodies abort. Caller holds s.mu.
func (s *Store) rewriteMentions(next *catalog.Catalog, docIDs []string, fn func(models.PersonMention) (models.PersonMention, bool)) ([]models.Document, error) {
	var bodies []models.Document
	for _, id := range docIDs {
		doc, err := s.readBody(id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				s.logger.Warn("linked document has no body", "id", id)
				continue
			}
			return nil, err
		}

		kept := doc.People[:0:0]
		for _, m := range doc.People {
			if m, keep := fn(m); keep {
				kept = append(kept, m)
			}
		}
		doc.People = kept
		if next.HasDocument(id) {
			next.PutDocument(id, doc.Entry())
		}
		bodies = append(bodies, doc)
	}
	return bodies, nil
}

// commitWithBodies writes the bodies, then the index. If any write fails the
// bodies already written are restored from their previous content on a best
// effort basis. Caller holds s.mu.
func (s *Store) commitWithBodies(next *catalog.Catalog, bodies []models.Document) error {
	var written []models.Document
	restore := func() {
		for _, doc := range written {
			if err := s.writeBody(doc); err != nil {
				s.logger.Error("failed to restore document body", "id", doc.ID, "error", err)
			}
		}
	}

	for _, doc := range bodies {
		prev, readErr := s.readBody(doc.ID)
		if readErr != nil && !errors.Is(readErr, models.ErrNotFound) {
			restore()
			return readErr
		}
		if err := s.writeBody(doc); err != nil {
			restore()
			return err
		}
		if readErr == nil {
			written = append(written, prev)
		}
	}

	if err := s.commit(next); err != nil {
		restore()
		return err
	}
	return nil
}

func hasMention(doc models.Document, key, original string) bool {
	for _, m := range doc.People {
		if m.NormalizedName == key && (original == "" || m.OriginalName == original) {
			return true
		}
	}
	return false
}

func stripMentions(mentions []models.PersonMention, key string) []models.PersonMention {
	out := mentions[:0:0]
	for _, m := range mentions {
		if m.NormalizedName != key {
			out = append(out, m)
		}
	}
	return out
}
