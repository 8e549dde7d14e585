package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gzentall/ocrstore/internal/catalog"
	"github.com/gzentall/ocrstore/internal/names"
	"github.com/gzentall/ocrstore/pkg/models"
)

// IssueKind classifies an integrity problem.
type IssueKind string

const (
	IssueMissingBody    IssueKind = "missing_body"    // index row without a body
	IssueOrphanBody     IssueKind = "orphan_body"     // body without an index row
	IssueCorruptBody    IssueKind = "corrupt_body"    // body that fails to parse
	IssueStaleEntry     IssueKind = "stale_entry"     // index row disagrees with body
	IssueMissingPerson  IssueKind = "missing_person"  // body names a key the registry lacks
	IssueMissingLink    IssueKind = "missing_link"    // person does not list a document naming it
	IssueDanglingRef    IssueKind = "dangling_ref"    // person lists a document that does not exist
	IssueStaleLink      IssueKind = "stale_link"      // person lists a document that does not name it
	IssueMissingAlias   IssueKind = "missing_alias"   // key absent from aliases
	IssueFirstMentioned IssueKind = "first_mentioned" // first_mentioned later than a linked document
	IssueEmptyPerson    IssueKind = "empty_person"    // person with no documents
)

// Issue is one integrity problem.
type Issue struct {
	Kind       IssueKind `json:"kind"`
	DocumentID string    `json:"document_id,omitempty"`
	PersonKey  string    `json:"person_key,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

func (i Issue) String() string {
	s := string(i.Kind)
	if i.DocumentID != "" {
		s += " document=" + i.DocumentID
	}
	if i.PersonKey != "" {
		s += fmt.Sprintf(" person=%q", i.PersonKey)
	}
	if i.Detail != "" {
		s += ": " + i.Detail
	}
	return s
}

// Report lists the issues a check found.
type Report struct {
	Issues   []Issue `json:"issues"`
	Repaired bool    `json:"repaired"`
}

// OK reports whether no issues were found.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

// Check verifies that bodies, the document index and the person registry
// agree. With repair set every fixable issue is corrected and the index
// saved; corrupt bodies are reported but left untouched.
func (s *Store) Check(repair bool) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.bodyIDs()
	if err != nil {
		return nil, err
	}

	bodies := make(map[string]models.Document, len(ids))
	corrupt := make(map[string]bool)
	report := &Report{}
	add := func(i Issue) { report.Issues = append(report.Issues, i) }

	for _, id := range ids {
		doc, err := s.readBody(id)
		if err != nil {
			if errors.Is(err, models.ErrCorruption) {
				corrupt[id] = true
				add(Issue{Kind: IssueCorruptBody, DocumentID: id, Detail: err.Error()})
				continue
			}
			return nil, err
		}
		bodies[id] = doc
	}

	next := s.cat.Clone()

	for _, row := range s.cat.Summaries() {
		if _, ok := bodies[row.ID]; ok || corrupt[row.ID] {
			continue
		}
		add(Issue{Kind: IssueMissingBody, DocumentID: row.ID})
		next.RemoveDocument(row.ID)
	}

	for _, id := range ids {
		doc, ok := bodies[id]
		if !ok {
			continue
		}
		entry, indexed := next.Documents[id]
		switch {
		case !indexed:
			add(Issue{Kind: IssueOrphanBody, DocumentID: id})
			next.PutDocument(id, doc.Entry())
		case !sameEntry(entry, doc.Entry()):
			add(Issue{Kind: IssueStaleEntry, DocumentID: id})
			next.PutDocument(id, doc.Entry())
		}

		for _, key := range doc.PersonKeys() {
			p, exists := next.Person(key)
			switch {
			case !exists:
				add(Issue{Kind: IssueMissingPerson, DocumentID: id, PersonKey: key})
			case !p.HasDocument(id):
				add(Issue{Kind: IssueMissingLink, DocumentID: id, PersonKey: key})
			default:
				continue
			}
			ensureLink(next, key, id, doc.DateProcessed)
		}
	}

	for _, key := range next.PersonKeys() {
		p, _ := next.Person(key)
		for _, id := range append([]string(nil), p.Documents...) {
			if corrupt[id] {
				continue
			}
			doc, ok := bodies[id]
			switch {
			case !ok:
				add(Issue{Kind: IssueDanglingRef, DocumentID: id, PersonKey: key})
			case !mentions(doc, key):
				add(Issue{Kind: IssueStaleLink, DocumentID: id, PersonKey: key})
			default:
				continue
			}
			next.Unlink(key, id)
		}
	}

	for _, key := range next.PersonKeys() {
		p, _ := next.Person(key)
		if !p.HasAlias(key) {
			add(Issue{Kind: IssueMissingAlias, PersonKey: key})
			p.Aliases = append([]string{key}, p.Aliases...)
		}
		if earliest := earliestDate(p, bodies); !earliest.IsZero() && earliest.Before(p.FirstMentioned) {
			add(Issue{Kind: IssueFirstMentioned, PersonKey: key, Detail: fmt.Sprintf("%s after %s", p.FirstMentioned, earliest)})
			p.FirstMentioned = earliest
		}
		if len(p.Documents) == 0 {
			add(Issue{Kind: IssueEmptyPerson, PersonKey: key})
			delete(next.People, key)
		}
	}

	if repair && len(report.Issues) > 0 {
		if err := s.commit(next); err != nil {
			return report, err
		}
		report.Repaired = true
		s.logger.Info("store repaired", "issues", len(report.Issues))
	}
	return report, nil
}

// sameEntry compares index rows, treating equal instants in different
// locations as equal.
func sameEntry(a, b models.DocumentEntry) bool {
	if !a.DateProcessed.Equal(b.DateProcessed.Time) {
		return false
	}
	a.DateProcessed, b.DateProcessed = models.Timestamp{}, models.Timestamp{}
	return a == b
}

func mentions(doc models.Document, key string) bool {
	for _, m := range doc.People {
		if m.NormalizedName == key {
			return true
		}
	}
	return false
}

func earliestDate(p *models.Person, bodies map[string]models.Document) models.Timestamp {
	var earliest models.Timestamp
	for _, id := range p.Documents {
		doc, ok := bodies[id]
		if !ok || doc.DateProcessed.IsZero() {
			continue
		}
		if earliest.IsZero() || doc.DateProcessed.Before(earliest) {
			earliest = doc.DateProcessed
		}
	}
	return earliest
}

// RebuildResult summarizes an index rebuild.
type RebuildResult struct {
	Documents int
	People    int
	Errors    []error
}

// Rebuild recreates the metadata index from the document bodies under root,
// replacing whatever index is there. Persons are keyed by the normalized
// names recorded in the bodies; aliases are recovered from original names.
// Unreadable bodies are reported and left out. The store must not be open.
func Rebuild(root string, logger *slog.Logger) (*RebuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lock, err := acquire(root)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	s := &Store{root: root, logger: logger, now: time.Now}
	ids, err := s.bodyIDs()
	if err != nil {
		return nil, err
	}

	result := &RebuildResult{}
	var docs []models.Document
	for _, id := range ids {
		doc, err := s.readBody(id)
		if err != nil {
			result.Errors = append(result.Errors, &LoadError{ID: id, Err: err})
			logger.Warn("skipping unreadable document", "id", id, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].DateProcessed.Before(docs[j].DateProcessed)
	})

	cat := catalog.New()
	for _, doc := range docs {
		cat.PutDocument(doc.ID, doc.Entry())
		for _, m := range doc.People {
			key := m.NormalizedName
			if key == "" {
				key = names.Normalize(m.OriginalName)
			}
			if key == "" {
				continue
			}
			ensureLink(cat, key, doc.ID, doc.DateProcessed)
			p, _ := cat.Person(key)
			p.AddAlias(names.Normalize(m.OriginalName))
			p.AppendContext(m.Context)
		}
	}

	if err := cat.Save(s.MetadataPath(), s.now()); err != nil {
		return nil, err
	}

	result.Documents = len(cat.Documents)
	result.People = len(cat.People)
	logger.Info("index rebuilt", "documents", result.Documents, "people", result.People, "errors", len(result.Errors))
	return result, nil
}
