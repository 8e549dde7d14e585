package models

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SummaryPreviewLength is the number of characters of a summary kept in the
// metadata index.
const SummaryPreviewLength = 100

// SummaryFailedPrefix marks a summary that could not be generated.
const SummaryFailedPrefix = "Summary generation failed: "

// Document is a processed document: OCR output translated to a target language.
type Document struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	DateProcessed  Timestamp       `json:"date_processed"`
	SourceLanguage string          `json:"source_language"`
	TargetLanguage string          `json:"target_language"`
	OriginalText   string          `json:"original_text"`
	TranslatedText string          `json:"translated_text"`
	Summary        string          `json:"summary"`
	SummaryError   string          `json:"summary_error,omitempty"` // set when regeneration failed
	People         []PersonMention `json:"people"`
	FileSize       int64           `json:"file_size"`
	PageCount      int             `json:"page_count"`
}

// PersonMention is one person mentioned in a document. NormalizedName is the
// key of the Person record the mention resolved to.
type PersonMention struct {
	OriginalName   string `json:"original_name"`
	NormalizedName string `json:"normalized_name"`
	Context        string `json:"context"`
}

// UnmarshalJSON accepts either a structured mention or a bare name string.
// Structured mentions may carry the raw name under "name" (summarizer output)
// instead of "original_name".
func (m *PersonMention) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*m = PersonMention{OriginalName: name}
		return nil
	}

	var raw struct {
		OriginalName   string `json:"original_name"`
		Name           string `json:"name"`
		NormalizedName string `json:"normalized_name"`
		Context        string `json:"context"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.OriginalName == "" {
		raw.OriginalName = raw.Name
	}
	if raw.OriginalName == "" {
		raw.OriginalName = raw.NormalizedName
	}
	*m = PersonMention{
		OriginalName:   raw.OriginalName,
		NormalizedName: raw.NormalizedName,
		Context:        raw.Context,
	}
	return nil
}

// DocumentEntry is the metadata index row for a document. It never carries
// the document bodies.
type DocumentEntry struct {
	Title          string    `json:"title"`
	DateProcessed  Timestamp `json:"date_processed"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	FileSize       int64     `json:"file_size"`
	PeopleCount    int       `json:"people_count"`
	Summary        string    `json:"summary"`
	PageCount      int       `json:"page_count"`
}

// DocumentSummary pairs a document ID with its index row.
type DocumentSummary struct {
	ID string `json:"id"`
	DocumentEntry
}

// Entry derives the metadata index row from a full document.
func (d Document) Entry() DocumentEntry {
	return DocumentEntry{
		Title:          d.Title,
		DateProcessed:  d.DateProcessed,
		SourceLanguage: d.SourceLanguage,
		TargetLanguage: d.TargetLanguage,
		FileSize:       d.FileSize,
		PeopleCount:    len(d.PersonKeys()),
		Summary:        TruncateSummary(d.Summary),
		PageCount:      d.PageCount,
	}
}

// PersonKeys returns the distinct normalized names referenced by the document
// in mention order. Mentions without a normalized name are skipped.
func (d Document) PersonKeys() []string {
	seen := make(map[string]struct{}, len(d.People))
	keys := make([]string, 0, len(d.People))
	for _, p := range d.People {
		if p.NormalizedName == "" {
			continue
		}
		if _, ok := seen[p.NormalizedName]; ok {
			continue
		}
		seen[p.NormalizedName] = struct{}{}
		keys = append(keys, p.NormalizedName)
	}
	return keys
}

// TruncateSummary shortens a summary to SummaryPreviewLength characters,
// appending "..." when anything was cut.
func TruncateSummary(summary string) string {
	if utf8.RuneCountInString(summary) <= SummaryPreviewLength {
		return summary
	}
	runes := []rune(summary)
	return string(runes[:SummaryPreviewLength]) + "..."
}

// NewDocumentID returns a fresh, time-ordered document identifier.
func NewDocumentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "doc_" + strings.ReplaceAll(id.String(), "-", "")
}

// ValidDocumentID reports whether id is safe to use as a file name.
func ValidDocumentID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}

// DocumentUpdate carries a partial update. Nil fields are left untouched.
type DocumentUpdate struct {
	Title          *string          `json:"title,omitempty"`
	DateProcessed  *Timestamp       `json:"date_processed,omitempty"`
	SourceLanguage *string          `json:"source_language,omitempty"`
	TargetLanguage *string          `json:"target_language,omitempty"`
	OriginalText   *string          `json:"original_text,omitempty"`
	TranslatedText *string          `json:"translated_text,omitempty"`
	Summary        *string          `json:"summary,omitempty"`
	People         *[]PersonMention `json:"people,omitempty"`
	FileSize       *int64           `json:"file_size,omitempty"`
	PageCount      *int             `json:"page_count,omitempty"`
}

// Apply merges the non-nil fields of u into d.
func (u DocumentUpdate) Apply(d *Document) {
	if u.Title != nil {
		d.Title = *u.Title
	}
	if u.DateProcessed != nil {
		d.DateProcessed = *u.DateProcessed
	}
	if u.SourceLanguage != nil {
		d.SourceLanguage = *u.SourceLanguage
	}
	if u.TargetLanguage != nil {
		d.TargetLanguage = *u.TargetLanguage
	}
	if u.OriginalText != nil {
		d.OriginalText = *u.OriginalText
	}
	if u.TranslatedText != nil {
		d.TranslatedText = *u.TranslatedText
	}
	if u.Summary != nil {
		d.Summary = *u.Summary
		d.SummaryError = ""
	}
	if u.People != nil {
		d.People = append([]PersonMention(nil), (*u.People)...)
	}
	if u.FileSize != nil {
		d.FileSize = *u.FileSize
	}
	if u.PageCount != nil {
		d.PageCount = *u.PageCount
	}
}
