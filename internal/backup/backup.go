// Package backup mirrors a store to object storage and restores it.
//
// A backup under prefix holds documents/<id>.json for every body,
// metadata.json with the index as committed, and manifest.json, written
// last, listing what the backup contains.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gzentall/ocrstore/internal/catalog"
	"github.com/gzentall/ocrstore/internal/fileutil"
	"github.com/gzentall/ocrstore/internal/storage"
	"github.com/gzentall/ocrstore/internal/store"
	"github.com/gzentall/ocrstore/pkg/models"
)

// Bucket is the object storage a backup is written to. *storage.Client
// implements it.
type Bucket interface {
	PutDocument(ctx context.Context, prefix string, doc models.Document) error
	GetDocument(ctx context.Context, prefix, id string) (models.Document, error)
	ListDocuments(ctx context.Context, prefix string) ([]string, error)
	PutMetadata(ctx context.Context, prefix string, data []byte) error
	GetMetadata(ctx context.Context, prefix string) ([]byte, error)
	PutManifest(ctx context.Context, prefix string, manifest storage.Manifest) error
	GetManifest(ctx context.Context, prefix string) (*storage.Manifest, error)
}

// Result holds backup or restore results.
type Result struct {
	Prefix    string
	Documents int
	Duration  time.Duration
	Errors    []error
}

// DefaultPrefix names a backup after the time it was taken.
func DefaultPrefix(now time.Time) string {
	return "backups/" + now.UTC().Format("2006-01-02T15-04-05Z")
}

// Backup copies a snapshot of st to prefix. Bodies that cannot be read are
// reported in the result and left out of the backup.
func Backup(ctx context.Context, st *store.Store, bucket Bucket, prefix string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	snap, err := st.Snapshot()
	if err != nil {
		return nil, err
	}
	result := &Result{Prefix: prefix, Errors: snap.Errors}

	logger.Info("starting backup", "prefix", prefix, "documents", len(snap.Documents))

	manifest := storage.Manifest{
		Root:        st.Root(),
		Timestamp:   start.UTC(),
		PeopleCount: len(snap.People),
	}
	for _, doc := range snap.Documents {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := bucket.PutDocument(ctx, prefix, doc); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrExternal, err)
		}
		logger.Debug("document backed up", "id", doc.ID)
		manifest.Documents = append(manifest.Documents, doc.ID)
	}
	manifest.DocumentCount = len(manifest.Documents)

	if err := bucket.PutMetadata(ctx, prefix, snap.Metadata); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternal, err)
	}
	if err := bucket.PutManifest(ctx, prefix, manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternal, err)
	}

	result.Documents = manifest.DocumentCount
	result.Duration = time.Since(start)
	logger.Info("backup complete",
		"prefix", prefix,
		"documents", result.Documents,
		"duration", result.Duration,
		"errors", len(result.Errors))
	return result, nil
}

// Restore writes the backup under prefix into dir, which must not already
// hold a store. Backups without a manifest are restored from the listed
// bodies.
func Restore(ctx context.Context, bucket Bucket, prefix, dir string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	metaPath := filepath.Join(dir, "metadata.json")
	if _, err := os.Stat(metaPath); err == nil {
		return nil, fmt.Errorf("%w: %s already holds a store", models.ErrIO, dir)
	}

	var ids []string
	manifest, err := bucket.GetManifest(ctx, prefix)
	switch {
	case err == nil:
		ids = manifest.Documents
	case errors.Is(err, models.ErrNotFound):
		logger.Warn("backup has no manifest, restoring listed documents", "prefix", prefix)
		ids, err = bucket.ListDocuments(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrExternal, err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", models.ErrExternal, err)
	}

	meta, err := bucket.GetMetadata(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternal, err)
	}
	if _, err := catalog.Parse(meta); err != nil {
		return nil, fmt.Errorf("backup %s: %w", prefix, err)
	}

	result := &Result{Prefix: prefix}
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !models.ValidDocumentID(id) {
			result.Errors = append(result.Errors, &store.LoadError{ID: id, Err: fmt.Errorf("%w: invalid document id", models.ErrCorruption)})
			logger.Warn("skipping invalid document id in backup", "prefix", prefix, "id", id)
			continue
		}
		doc, err := bucket.GetDocument(ctx, prefix, id)
		if err != nil {
			result.Errors = append(result.Errors, &store.LoadError{ID: id, Err: err})
			continue
		}
		if err := fileutil.WriteJSONAtomic(filepath.Join(dir, "documents", id+".json"), doc); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
		}
		result.Documents++
	}

	if err := fileutil.WriteFileAtomic(metaPath, meta, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
	}

	result.Duration = time.Since(start)
	logger.Info("restore complete", "prefix", prefix, "dir", dir, "documents", result.Documents, "errors", len(result.Errors))
	return result, nil
}
