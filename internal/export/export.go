// Package export renders the store's index for people and other tools:
// a JSON dump, a plain-text report, CSV, and terminal tables.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gzentall/ocrstore/pkg/models"
)

// Dump is the full index in the shape external note-taking imports expect.
type Dump struct {
	Documents      map[string]models.DocumentEntry `json:"documents"`
	People         map[string]models.Person        `json:"people"`
	ExportDate     models.Timestamp                `json:"export_date"`
	TotalDocuments int                             `json:"total_documents"`
	TotalPeople    int                             `json:"total_people"`
}

// NewDump builds a dump from index rows and people.
func NewDump(rows []models.DocumentSummary, people []models.Person, now time.Time) Dump {
	d := Dump{
		Documents:      make(map[string]models.DocumentEntry, len(rows)),
		People:         make(map[string]models.Person, len(people)),
		ExportDate:     models.NewTimestamp(now),
		TotalDocuments: len(rows),
		TotalPeople:    len(people),
	}
	for _, row := range rows {
		d.Documents[row.ID] = row.DocumentEntry
	}
	for _, p := range people {
		d.People[p.Key] = p
	}
	return d
}

// WriteJSON writes the dump as indented JSON.
func WriteJSON(w io.Writer, d Dump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(d)
}

// WriteReport writes a plain-text report of every document and person.
func WriteReport(w io.Writer, rows []models.DocumentSummary, people []models.Person, now time.Time) error {
	var b strings.Builder
	b.WriteString("OCR Document Store Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total Documents: %d\n", len(rows))
	fmt.Fprintf(&b, "Total People: %d\n\n", len(people))

	b.WriteString("DOCUMENTS:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "• %s\n", row.Title)
		fmt.Fprintf(&b, "  Date: %s\n", row.DateProcessed)
		fmt.Fprintf(&b, "  Language: %s → %s\n", row.SourceLanguage, row.TargetLanguage)
		fmt.Fprintf(&b, "  Size: %s, %d pages\n", humanize.Bytes(uint64(max(row.FileSize, 0))), row.PageCount)
		fmt.Fprintf(&b, "  People: %d\n", row.PeopleCount)
		fmt.Fprintf(&b, "  Summary: %s\n\n", row.Summary)
	}

	b.WriteString("PEOPLE:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	for _, p := range people {
		fmt.Fprintf(&b, "• %s\n", p.Key)
		fmt.Fprintf(&b, "  Aliases: %s\n", strings.Join(p.Aliases, ", "))
		fmt.Fprintf(&b, "  First mentioned: %s\n", p.FirstMentioned)
		fmt.Fprintf(&b, "  Documents: %d\n\n", len(p.Documents))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// CSVHeader lists the CSV columns.
var CSVHeader = []string{"Title", "Date", "Source Language", "Target Language", "People Count", "Summary"}

// WriteCSV writes one line per index row.
func WriteCSV(w io.Writer, rows []models.DocumentSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Title,
			row.DateProcessed.DateString(),
			row.SourceLanguage,
			row.TargetLanguage,
			strconv.Itoa(row.PeopleCount),
			row.Summary,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
