package export

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gzentall/ocrstore/pkg/models"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// DocumentTable renders index rows as a terminal table.
func DocumentTable(rows []models.DocumentSummary) string {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.ID,
			row.DateProcessed.DateString(),
			row.Title,
			row.SourceLanguage,
			strconv.Itoa(row.PeopleCount),
			humanize.Bytes(uint64(max(row.FileSize, 0))),
		})
	}
	return renderTable(
		[]string{"ID", "Date", "Title", "Language", "People", "Size"},
		data,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

// PeopleTable renders people as a terminal table.
func PeopleTable(people []models.Person) string {
	data := make([][]string, 0, len(people))
	for _, p := range people {
		data = append(data, []string{
			p.Key,
			strconv.Itoa(len(p.Aliases)),
			strconv.Itoa(len(p.Documents)),
			p.FirstMentioned.DateString(),
		})
	}
	return renderTable(
		[]string{"Person", "Aliases", "Documents", "First mentioned"},
		data,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
