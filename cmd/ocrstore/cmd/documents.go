package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/export"
	"github.com/gzentall/ocrstore/internal/pipeline"
	"github.com/gzentall/ocrstore/pkg/models"
)

var (
	addOriginal   string
	addTranslated string
	addTitle      string
	addLanguage   string
	addPages      int

	listFormat string
	getFormat  string

	updateRegenerate bool
)

var addCmd = &cobra.Command{
	Use:   "add [payload.json]",
	Short: "Store a document",
	Long: `Store a document, either from a JSON payload or from OCR output.

A payload carries the document fields; people may be given as plain names or
as {"name", "context"} objects. Text files are cleaned, summarized and
scanned for people before storing.

Examples:
  # Store a prepared payload
  ocrstore add letter.json

  # Store OCR output and its translation
  ocrstore add --original letter.vision.txt --translated letter.translated.txt --language German`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var updateCmd = &cobra.Command{
	Use:   "update [id] [changes.json]",
	Short: "Change fields of a document",
	Long: `Apply a partial update. Only the fields present in the JSON are changed.

With --regenerate and a new translated_text, the summary and people are
generated again. If that fails the previous summary and people are kept.

Example:
  echo '{"title": "Letter to Maria"}' > changes.json
  ocrstore update doc_0190... changes.json`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document and its person links",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(addCmd, getCmd, listCmd, updateCmd, deleteCmd)

	addCmd.Flags().StringVar(&addOriginal, "original", "", "file with the OCR text")
	addCmd.Flags().StringVar(&addTranslated, "translated", "", "file with the translated text")
	addCmd.Flags().StringVar(&addTitle, "title", "", "document title (default: derived from the text)")
	addCmd.Flags().StringVar(&addLanguage, "language", "", "source language")
	addCmd.Flags().IntVar(&addPages, "pages", 0, "page count")

	getCmd.Flags().StringVar(&getFormat, "format", "text", "Output format: text or json")
	listCmd.Flags().StringVar(&listFormat, "format", "table", "Output format: table or json")

	updateCmd.Flags().BoolVar(&updateRegenerate, "regenerate", false, "regenerate summary and people from the new translation")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	var doc models.Document
	switch {
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("invalid payload %s: %w", args[0], err)
		}
	case addOriginal != "" || addTranslated != "":
		in := pipeline.Input{Title: addTitle, SourceLanguage: addLanguage, PageCount: addPages}
		if addOriginal != "" {
			data, err := os.ReadFile(addOriginal)
			if err != nil {
				return err
			}
			in.OriginalText = string(data)
		}
		if addTranslated != "" {
			data, err := os.ReadFile(addTranslated)
			if err != nil {
				return err
			}
			in.TranslatedText = string(data)
		}

		sum, err := newSummarizer()
		if err != nil {
			return err
		}
		result, err := newPipeline(sum).Run(ctx, in)
		if err != nil {
			return err
		}
		if result.Degraded {
			fmt.Fprintln(cmd.ErrOrStderr(), "Warning: summary generation failed, storing without people")
		}
		doc = result.Document
	default:
		return fmt.Errorf("give a payload file or --original/--translated")
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Create(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.Get(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if getFormat == "json" {
		return printJSON(out, doc)
	}

	fmt.Fprintf(out, "Title:    %s\n", doc.Title)
	fmt.Fprintf(out, "ID:       %s\n", doc.ID)
	fmt.Fprintf(out, "Date:     %s\n", doc.DateProcessed)
	fmt.Fprintf(out, "Language: %s → %s\n", doc.SourceLanguage, doc.TargetLanguage)
	fmt.Fprintf(out, "Size:     %s, %d pages\n", humanize.Bytes(uint64(max(doc.FileSize, 0))), doc.PageCount)
	fmt.Fprintf(out, "Summary:  %s\n", doc.Summary)
	if doc.SummaryError != "" {
		fmt.Fprintf(out, "Warning:  %s\n", doc.SummaryError)
	}
	if len(doc.People) > 0 {
		fmt.Fprintln(out, "People:")
		for _, p := range doc.People {
			line := fmt.Sprintf("  - %s (%s)", p.OriginalName, p.NormalizedName)
			if p.Context != "" {
				line += ": " + p.Context
			}
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprintf(out, "\n─── Translation ───\n%s\n", doc.TranslatedText)
	fmt.Fprintf(out, "\n─── Original ───\n%s\n", doc.OriginalText)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rows := st.List()
	if listFormat == "json" {
		return printJSON(cmd.OutOrStdout(), rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents stored.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), export.DocumentTable(rows))
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	var upd models.DocumentUpdate
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		return fmt.Errorf("invalid update %s: %w", args[1], err)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.Update(ctx, args[0], upd, updateRegenerate)
	if err != nil {
		return err
	}
	if doc.SummaryError != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", doc.SummaryError)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", doc.ID)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
