package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for document retrieval.

The server communicates via stdio and holds the store lock while running.
It provides these tools:
  - search_documents: Search documents by query
  - get_document: Get a document by ID
  - list_people: List every person
  - search_people: Fuzzy search over names and aliases
  - person_documents: A person's documents, oldest first
  - stats: Store statistics

Example:
  ocrstore serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	es, err := newESClient()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, st, es)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
