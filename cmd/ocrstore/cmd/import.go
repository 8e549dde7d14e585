package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/ingestion"
)

var importPrefix string

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import a batch of documents",
	Long: `Import a batch of OCR output from a local directory or an S3 prefix.

A batch holds JSON payloads (one document, or an array of documents, per
file) and text pairs named <name>.vision.txt and <name>.translated.txt.
Payloads without a summary and all text pairs are summarized and scanned
for people on the way in. Items that fail are reported; the rest are kept.

Examples:
  # Import a local directory
  ocrstore import ./work/en

  # Import from the configured bucket
  ocrstore import --s3-prefix batches/2024-05-01`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importPrefix, "s3-prefix", "", "S3 prefix to import from")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	var src ingestion.Source
	switch {
	case importPrefix != "":
		client, err := newStorageClient()
		if err != nil {
			return err
		}
		src = ingestion.NewS3Source(client, importPrefix)
	case len(args) == 1:
		src = ingestion.NewDirSource(args[0])
	default:
		return fmt.Errorf("give a directory or --s3-prefix")
	}
	slog.Debug("import command starting", "source", src.Name())

	sum, err := newSummarizer()
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := ingestion.New(st, newPipeline(sum), slog.Default())
	result, err := engine.Ingest(ctx, src)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d documents from %s in %s\n", len(result.Imported), result.Source, result.Duration.Round(time.Millisecond))
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "%d items failed:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}
	return nil
}
