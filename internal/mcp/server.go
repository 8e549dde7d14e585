// Package mcp exposes the store's read operations as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gzentall/ocrstore/internal/catalog"
	"github.com/gzentall/ocrstore/internal/elasticsearch"
	"github.com/gzentall/ocrstore/internal/identity"
	"github.com/gzentall/ocrstore/internal/store"
	"github.com/gzentall/ocrstore/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Server wraps the MCP server around a store.
type Server struct {
	mcpServer *server.MCPServer
	store     *store.Store
	fulltext  *elasticsearch.Client // nil when full-text search is disabled
}

// NewServer creates a new MCP server with the store's read tools. fulltext
// may be nil, in which case search_documents matches titles and summaries.
func NewServer(config Config, st *store.Store, fulltext *elasticsearch.Client) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		store:     st,
		fulltext:  fulltext,
	}

	searchTool := mcp.NewTool("search_documents",
		mcp.WithDescription("Search stored documents by query. Returns matching documents with their summaries."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	getDocTool := mcp.NewTool("get_document",
		mcp.WithDescription("Get a document by ID, including original and translated text"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Document ID to retrieve"),
		),
	)
	mcpServer.AddTool(getDocTool, s.getDocumentHandler)

	listPeopleTool := mcp.NewTool("list_people",
		mcp.WithDescription("List every person mentioned in the stored documents"),
	)
	mcpServer.AddTool(listPeopleTool, s.listPeopleHandler)

	searchPeopleTool := mcp.NewTool("search_people",
		mcp.WithDescription("Find people whose name or aliases resemble the query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Name to look for"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity score 0-100 (default: 70)"),
		),
	)
	mcpServer.AddTool(searchPeopleTool, s.searchPeopleHandler)

	personDocsTool := mcp.NewTool("person_documents",
		mcp.WithDescription("List the documents mentioning a person, oldest first"),
		mcp.WithString("person",
			mcp.Required(),
			mcp.Description("Normalized person name, as returned by list_people"),
		),
	)
	mcpServer.AddTool(personDocsTool, s.personDocumentsHandler)

	statsTool := mcp.NewTool("stats",
		mcp.WithDescription("Summary statistics of the document store"),
	)
	mcpServer.AddTool(statsTool, s.statsHandler)

	return s, nil
}

// searchHandler handles the search_documents tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := req.GetInt("limit", 10)

	docs, err := s.handleSearch(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(docs)
}

// getDocumentHandler handles the get_document tool call.
func (s *Server) getDocumentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	doc, err := s.handleGetDocument(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get document failed: %v", err)), nil
	}
	return jsonResult(doc)
}

// personResult carries the key, which the stored form leaves implicit.
type personResult struct {
	Key string `json:"key"`
	models.Person
}

func (s *Server) listPeopleHandler(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.handleListPeople())
}

func (s *Server) searchPeopleHandler(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	threshold := req.GetInt("threshold", 0)
	return jsonResult(s.handleSearchPeople(query, threshold))
}

func (s *Server) personDocumentsHandler(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("person")
	if err != nil {
		return mcp.NewToolResultError("person parameter is required"), nil
	}

	rows, err := s.store.PersonDocuments(key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("person not found: %s", key)), nil
	}
	return jsonResult(rows)
}

func (s *Server) statsHandler(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.handleStats())
}

// handleSearch searches documents, through the full-text index when one is
// configured.
func (s *Server) handleSearch(ctx context.Context, query string, limit int) ([]models.DocumentSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	if s.fulltext != nil {
		hits, err := s.fulltext.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		rows := make([]models.DocumentSummary, 0, len(hits))
		for _, h := range hits {
			rows = append(rows, models.DocumentSummary{ID: h.Document.ID, DocumentEntry: h.Document.Entry()})
		}
		return rows, nil
	}

	rows := s.store.Search(query)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// handleGetDocument retrieves a document by ID.
func (s *Server) handleGetDocument(ctx context.Context, id string) (models.Document, error) {
	return s.store.Get(ctx, id)
}

func (s *Server) handleListPeople() []personResult {
	people := s.store.People()
	out := make([]personResult, 0, len(people))
	for _, p := range people {
		out = append(out, personResult{Key: p.Key, Person: p})
	}
	return out
}

func (s *Server) handleSearchPeople(query string, threshold int) []identity.Candidate {
	return s.store.SearchPeople(query, threshold)
}

func (s *Server) handleStats() catalog.Stats {
	return s.store.Stats()
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
