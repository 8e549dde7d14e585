package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/pkg/models"
)

var (
	searchLimit    int
	searchFormat   string
	searchFulltext bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored documents",
	Long: `Search stored documents. By default titles and summaries are matched
case-insensitively; --fulltext queries the Elasticsearch mirror instead,
covering both texts and the names of the people mentioned.

Examples:
  # Basic search
  ocrstore search "harvest"

  # Full-text search, limited
  ocrstore search "Hamburg" --fulltext --limit 5

  # JSON output for scripting
  ocrstore search "letter" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
	searchCmd.Flags().BoolVar(&searchFulltext, "fulltext", false, "Search document texts through Elasticsearch")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	query := args[0]

	var rows []models.DocumentSummary
	if searchFulltext {
		es, err := newESClient()
		if err != nil {
			return err
		}
		if es == nil {
			return fmt.Errorf("full-text search needs elasticsearch.enabled")
		}
		hits, err := es.Search(ctx, query, searchLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		for _, h := range hits {
			rows = append(rows, models.DocumentSummary{ID: h.Document.ID, DocumentEntry: h.Document.Entry()})
		}
	} else {
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rows = st.Search(query)
		if searchLimit > 0 && len(rows) > searchLimit {
			rows = rows[:searchLimit]
		}
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	// Output results
	if searchFormat == "json" {
		return printJSON(out, rows)
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(rows))
	for i, row := range rows {
		fmt.Fprintf(out, "─── Result %d ───\n", i+1)
		fmt.Fprintf(out, "Title:   %s\n", row.Title)
		fmt.Fprintf(out, "Date:    %s\n", row.DateProcessed.DateString())
		fmt.Fprintf(out, "ID:      %s\n", row.ID)
		fmt.Fprintf(out, "People:  %d\n", row.PeopleCount)
		fmt.Fprintf(out, "Summary: %s\n\n", row.Summary)
	}
	return nil
}
