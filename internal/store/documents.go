package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/gzentall/ocrstore/internal/catalog"
	"github.com/gzentall/ocrstore/internal/events"
	"github.com/gzentall/ocrstore/internal/fileutil"
	"github.com/gzentall/ocrstore/internal/summarizer"
	"github.com/gzentall/ocrstore/pkg/models"
)

// Create stores a new document and links every person it mentions. The ID
// in doc is ignored; the assigned ID is returned. Mentions whose names
// normalize to nothing are dropped with a warning. A zero DateProcessed is
// set to the current time.
func (s *Store) Create(ctx context.Context, doc models.Document) (string, error) {
	s.mu.Lock()

	doc.ID = models.NewDocumentID()
	if doc.DateProcessed.IsZero() {
		doc.DateProcessed = models.NewTimestamp(s.now().UTC())
	}
	doc.People = append([]models.PersonMention(nil), doc.People...)

	next := s.cat.Clone()
	people, err := s.resolveMentions(next, doc.ID, doc.People, doc.DateProcessed)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	doc.People = people

	for _, key := range doc.PersonKeys() {
		ensureLink(next, key, doc.ID, doc.DateProcessed)
	}
	next.PutDocument(doc.ID, doc.Entry())

	if err := s.writeBody(doc); err != nil {
		s.mu.Unlock()
		return "", err
	}
	if err := s.commit(next); err != nil {
		if rmErr := s.removeBody(doc.ID); rmErr != nil {
			s.logger.Error("failed to remove body after metadata failure", "id", doc.ID, "error", rmErr)
		}
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	s.logger.Debug("document created", "id", doc.ID, "people", len(doc.PersonKeys()))
	s.emit(ctx, events.Event{Kind: events.DocumentCreated, DocumentID: doc.ID, Documents: []models.Document{doc}})
	return doc.ID, nil
}

// resolveMentions runs every mention through the identity resolver against
// next and fills in NormalizedName. The original name is preferred for
// resolution; a mention carrying only a normalized name uses that.
func (s *Store) resolveMentions(next *catalog.Catalog, docID string, mentions []models.PersonMention, date models.Timestamp) ([]models.PersonMention, error) {
	out := make([]models.PersonMention, 0, len(mentions))
	for _, m := range mentions {
		raw := m.OriginalName
		if raw == "" {
			raw = m.NormalizedName
		}
		match, err := s.resolver.Resolve(next, raw, m.Context, date)
		if err != nil {
			if errors.Is(err, models.ErrInvalidName) {
				s.logger.Warn("skipping person mention", "id", docID, "name", raw, "error", err)
				continue
			}
			return nil, err
		}
		m.OriginalName = raw
		m.NormalizedName = match.Key
		out = append(out, m)
	}
	return out, nil
}

// Get returns a document. A document listed in the index whose body is gone
// is pruned from the index and every person, then reported as not found.
// A body that fails to parse is reported as corruption and left in place.
func (s *Store) Get(ctx context.Context, id string) (models.Document, error) {
	if !models.ValidDocumentID(id) {
		return models.Document{}, fmt.Errorf("%w: document %q", models.ErrNotFound, id)
	}

	s.mu.Lock()
	doc, err := s.readBody(id)
	if err == nil || !errors.Is(err, models.ErrNotFound) {
		s.mu.Unlock()
		return doc, err
	}

	healed := s.pruneLocked(id)
	s.mu.Unlock()

	if healed {
		s.emit(ctx, events.Event{Kind: events.DocumentDeleted, DocumentID: id, Removed: []string{id}})
	}
	return models.Document{}, err
}

// pruneLocked drops a dangling index entry and its person links. Returns
// true if anything was removed. Caller holds s.mu.
func (s *Store) pruneLocked(id string) bool {
	if !s.cat.HasDocument(id) && !s.referenced(id) {
		return false
	}
	next := s.cat.Clone()
	dropped := next.RemoveDocument(id)
	if err := s.commit(next); err != nil {
		s.logger.Error("failed to prune dangling document", "id", id, "error", err)
		return false
	}
	s.logger.Warn("pruned document with missing body", "id", id, "people_removed", dropped)
	return true
}

// referenced reports whether any person lists id. Caller holds s.mu.
func (s *Store) referenced(id string) bool {
	for _, p := range s.cat.People {
		if p.HasDocument(id) {
			return true
		}
	}
	return false
}

// Update merges upd into the document. With regenerate set and a new
// translated text supplied, the summarizer recomputes the summary and people
// without the index lock held; if it fails the previous summary and people
// are kept and SummaryError records the failure. Person links follow the
// difference between the old and new people lists.
func (s *Store) Update(ctx context.Context, id string, upd models.DocumentUpdate, regenerate bool) (models.Document, error) {
	if !models.ValidDocumentID(id) {
		return models.Document{}, fmt.Errorf("%w: document %q", models.ErrNotFound, id)
	}

	var (
		regen    summarizer.Result
		regenErr error
		doRegen  = regenerate && upd.TranslatedText != nil
	)
	if doRegen {
		s.mu.Lock()
		snapshot, err := s.readBody(id)
		s.mu.Unlock()
		if err != nil {
			return models.Document{}, err
		}
		upd.Apply(&snapshot)
		regen, regenErr = s.regenerate(ctx, snapshot)
	}

	s.mu.Lock()
	current, err := s.readBody(id)
	if err != nil {
		s.mu.Unlock()
		return models.Document{}, err
	}
	previous := current

	upd.Apply(&current)
	switch {
	case doRegen && regenErr == nil:
		current.Summary = regen.Summary
		current.SummaryError = ""
		current.People = regen.Mentions()
	case doRegen:
		current.SummaryError = regenErr.Error()
		s.logger.Warn("summary regeneration failed, keeping previous summary", "id", id, "error", regenErr)
	}
	peopleChanged := upd.People != nil || (doRegen && regenErr == nil)

	next := s.cat.Clone()
	if peopleChanged {
		people, err := s.resolveMentions(next, id, current.People, current.DateProcessed)
		if err != nil {
			s.mu.Unlock()
			return models.Document{}, err
		}
		current.People = people
	}

	oldKeys := previous.PersonKeys()
	newKeys := current.PersonKeys()
	for _, key := range oldKeys {
		if !slices.Contains(newKeys, key) {
			next.Unlink(key, id)
		}
	}
	for _, key := range newKeys {
		ensureLink(next, key, id, current.DateProcessed)
	}
	next.PutDocument(id, current.Entry())

	if err := s.writeBody(current); err != nil {
		s.mu.Unlock()
		return models.Document{}, err
	}
	if err := s.commit(next); err != nil {
		if restoreErr := s.writeBody(previous); restoreErr != nil {
			s.logger.Error("failed to restore body after metadata failure", "id", id, "error", restoreErr)
		}
		s.mu.Unlock()
		return models.Document{}, err
	}
	s.mu.Unlock()

	s.emit(ctx, events.Event{Kind: events.DocumentUpdated, DocumentID: id, Documents: []models.Document{current}})
	return current, nil
}

func (s *Store) regenerate(ctx context.Context, doc models.Document) (summarizer.Result, error) {
	if s.summarizer == nil {
		return summarizer.Result{}, fmt.Errorf("%w: no summarizer configured", models.ErrExternal)
	}
	res, err := s.summarizer.Summarize(ctx, summarizer.Request{
		Title:          doc.Title,
		SourceLanguage: doc.SourceLanguage,
		OriginalText:   doc.OriginalText,
		TranslatedText: doc.TranslatedText,
	})
	if err != nil && !errors.Is(err, models.ErrExternal) {
		err = fmt.Errorf("%w: %w", models.ErrExternal, err)
	}
	return res, err
}

// Delete removes the document body and index row and unlinks the document
// from every person, deleting persons left with no documents. Deleting a
// document that is neither stored nor referenced returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !models.ValidDocumentID(id) {
		return fmt.Errorf("%w: document %q", models.ErrNotFound, id)
	}

	s.mu.Lock()
	bodyErr := s.removeBody(id)
	if bodyErr != nil && !errors.Is(bodyErr, models.ErrNotFound) {
		s.mu.Unlock()
		return bodyErr
	}
	bodyExisted := bodyErr == nil

	if !bodyExisted && !s.cat.HasDocument(id) && !s.referenced(id) {
		s.mu.Unlock()
		return fmt.Errorf("%w: document %q", models.ErrNotFound, id)
	}

	next := s.cat.Clone()
	dropped := next.RemoveDocument(id)
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Debug("document deleted", "id", id, "people_removed", dropped)
	s.emit(ctx, events.Event{Kind: events.DocumentDeleted, DocumentID: id, Removed: []string{id}})
	return nil
}

// List returns every index row, newest first.
func (s *Store) List() []models.DocumentSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.Summaries()
}

// Search matches query case-insensitively against titles and summaries.
func (s *Store) Search(query string) []models.DocumentSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.Search(query)
}

// Stats summarizes the index.
func (s *Store) Stats() catalog.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.Stats()
}

// LoadError reports a document that could not be read.
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("document %s: %v", e.ID, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// LoadAll reads every indexed document body, newest first. Unreadable
// documents are reported individually and do not stop the scan.
func (s *Store) LoadAll() ([]models.Document, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		docs []models.Document
		errs []error
	)
	for _, row := range s.cat.Summaries() {
		doc, err := s.readBody(row.ID)
		if err != nil {
			errs = append(errs, &LoadError{ID: row.ID, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}

// readBody loads a document body. Caller holds s.mu.
func (s *Store) readBody(id string) (models.Document, error) {
	data, err := os.ReadFile(s.DocumentPath(id))
	if err != nil {
		if isNotExist(err) {
			return models.Document{}, fmt.Errorf("%w: document %q", models.ErrNotFound, id)
		}
		return models.Document{}, fmt.Errorf("%w: read document %s: %v", models.ErrIO, id, err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("%w: document %s: %v", models.ErrCorruption, id, err)
	}
	doc.ID = id
	return doc, nil
}

func (s *Store) writeBody(doc models.Document) error {
	if err := fileutil.WriteJSONAtomic(s.DocumentPath(doc.ID), doc); err != nil {
		return fmt.Errorf("%w: write document %s: %v", models.ErrIO, doc.ID, err)
	}
	return nil
}

func (s *Store) removeBody(id string) error {
	if err := os.Remove(s.DocumentPath(id)); err != nil {
		if isNotExist(err) {
			return fmt.Errorf("%w: document %q", models.ErrNotFound, id)
		}
		return fmt.Errorf("%w: remove document %s: %v", models.ErrIO, id, err)
	}
	return nil
}

// bodyIDs lists the IDs of every body file on disk, sorted.
func (s *Store) bodyIDs() ([]string, error) {
	return listBodyIDs(s.root)
}

func listBodyIDs(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, documentsDir))
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list documents: %v", models.ErrIO, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || name[0] == '.' {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	sort.Strings(ids)
	return ids, nil
}

// ensureLink links docID to key, recreating the person if the registry has
// lost it, and lowers its first mention to date.
func ensureLink(c *catalog.Catalog, key, docID string, date models.Timestamp) {
	p, ok := c.Person(key)
	if !ok {
		p = models.NewPerson(key, "", date)
		c.AddPerson(p)
	}
	p.NoteMention(date)
	if !p.HasDocument(docID) {
		p.Documents = append(p.Documents, docID)
	}
}
