package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:       "export [json|report|csv|table]",
	Short:     "Export the document and people index",
	ValidArgs: []string{"json", "report", "csv", "table"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Long: `Export the index in one of four formats:

  json    every index row and person, with totals and the export date
  report  a plain-text report
  csv     one line per document
  table   terminal tables of documents and people

Examples:
  ocrstore export csv --output documents.csv
  ocrstore export report`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	rows := st.List()
	people := st.People()
	now := time.Now()

	switch args[0] {
	case "json":
		err = export.WriteJSON(out, export.NewDump(rows, people, now))
	case "report":
		err = export.WriteReport(out, rows, people, now)
	case "csv":
		err = export.WriteCSV(out, rows)
	case "table":
		_, err = fmt.Fprintf(out, "%s\n\n%s\n", export.DocumentTable(rows), export.PeopleTable(people))
	}
	if err != nil {
		return err
	}

	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d documents to %s\n", len(rows), exportOutput)
	}
	return nil
}
