package elasticsearch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gzentall/ocrstore/internal/events"
	"github.com/gzentall/ocrstore/pkg/models"
)

// Indexer keeps the index in step with the store by consuming its events.
type Indexer struct {
	client *Client
	logger *slog.Logger
}

// NewIndexer creates an indexer writing through client.
func NewIndexer(client *Client, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{client: client, logger: logger}
}

// Handle implements events.Handler: written bodies are (re)indexed and
// removed ones deleted.
func (ix *Indexer) Handle(ctx context.Context, ev events.Event) error {
	var errs []error
	for _, doc := range ev.Documents {
		if err := ix.client.IndexDocument(ctx, doc); err != nil {
			errs = append(errs, err)
			continue
		}
		ix.logger.Debug("document indexed", "id", doc.ID, "event", ev.Kind)
	}
	for _, id := range ev.Removed {
		if err := ix.client.DeleteDocument(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		ix.logger.Debug("document removed from index", "id", id, "event", ev.Kind)
	}
	return errors.Join(errs...)
}

// ReindexResult holds the outcome of a full reindex.
type ReindexResult struct {
	Indexed int
	Errors  []error
}

// Reindex recreates the index from docs.
func (ix *Indexer) Reindex(ctx context.Context, docs []models.Document) (*ReindexResult, error) {
	if err := ix.client.DeleteIndex(ctx); err != nil {
		return nil, err
	}
	if err := ix.client.CreateIndex(ctx); err != nil {
		return nil, err
	}

	result := &ReindexResult{}
	for _, doc := range docs {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			break
		}
		if err := ix.client.IndexDocument(ctx, doc); err != nil {
			ix.logger.Error("failed to index document", "id", doc.ID, "error", err)
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Indexed++
	}

	// Refresh index to make documents searchable immediately
	if err := ix.client.Refresh(ctx); err != nil {
		result.Errors = append(result.Errors, err)
	}
	ix.logger.Info("reindex complete", "index", ix.client.Index(), "indexed", result.Indexed, "errors", len(result.Errors))
	return result, nil
}
