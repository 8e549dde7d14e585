package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/elasticsearch"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the Elasticsearch mirror from the store",
	Long: `Drop the full-text index and push every stored document into it again.

Use this after enabling Elasticsearch on an existing store, or when the
mirror has drifted (for example after edits made while it was unreachable).`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	es, err := newESClient()
	if err != nil {
		return err
	}
	if es == nil {
		return fmt.Errorf("reindex needs elasticsearch.enabled")
	}
	if !es.Ping(ctx) {
		return fmt.Errorf("elasticsearch is not reachable at %v", cfg.Elasticsearch.Addresses)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	docs, loadErrs := st.LoadAll()
	for _, e := range loadErrs {
		slog.Warn("skipping unreadable document", "error", e)
	}

	result, err := elasticsearch.NewIndexer(es, slog.Default()).Reindex(ctx, docs)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into %s (%d errors, %d unreadable)\n",
		result.Indexed, es.Index(), len(result.Errors), len(loadErrs))
	return nil
}
