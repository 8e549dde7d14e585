// Package store persists documents and the people they mention under a
// single root directory:
//
//	<root>/documents/<id>.json   one body per document
//	<root>/people/               reserved for per-person files
//	<root>/metadata.json         document index, person registry, last_updated
//	<root>/.lock                 held while a Store is open
//
// Every operation that touches the metadata index runs under one mutex.
// Mutations work on a clone of the index and replace the in-memory copy only
// after the clone has been written, so a failed write leaves both the file
// and memory as they were. Cross-entity changes follow a fixed order: document
// body, document index row, person links, index persisted.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/gzentall/ocrstore/internal/catalog"
	"github.com/gzentall/ocrstore/internal/events"
	"github.com/gzentall/ocrstore/internal/identity"
	"github.com/gzentall/ocrstore/internal/summarizer"
	"github.com/gzentall/ocrstore/pkg/models"
)

const (
	documentsDir = "documents"
	peopleDir    = "people"
	metadataFile = "metadata.json"
	lockFile     = ".lock"
)

// Options configures a Store.
type Options struct {
	Identity   identity.Config
	Summarizer summarizer.Summarizer // Used by Update with regenerate; may be nil
	Logger     *slog.Logger
	Now        func() time.Time
}

// Store is the document store and person registry.
type Store struct {
	root       string
	lock       *flock.Flock
	resolver   *identity.Resolver
	summarizer summarizer.Summarizer
	logger     *slog.Logger
	now        func() time.Time

	mu  sync.Mutex
	cat *catalog.Catalog

	handlersMu sync.RWMutex
	handlers   []events.Handler
}

// Open prepares the directory layout, takes the store lock and loads the
// metadata index. It fails with models.ErrLocked when another Store holds
// the same root.
func Open(root string, opts Options) (*Store, error) {
	lock, err := acquire(root)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(filepath.Join(root, metadataFile))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	s := &Store{
		root:       root,
		lock:       lock,
		resolver:   identity.New(opts.Identity),
		summarizer: opts.Summarizer,
		logger:     opts.Logger,
		now:        opts.Now,
		cat:        cat,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.logger.Debug("store opened", "root", root, "documents", len(cat.Documents), "people", len(cat.People))
	return s, nil
}

// acquire creates the layout and takes the non-blocking store lock.
func acquire(root string) (*flock.Flock, error) {
	for _, dir := range []string{root, filepath.Join(root, documentsDir), filepath.Join(root, peopleDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", models.ErrIO, dir, err)
		}
	}

	lock := flock.New(filepath.Join(root, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire lock: %v", models.ErrIO, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrLocked, root)
	}
	return lock, nil
}

// Close releases the store lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// MetadataPath returns the path of the metadata index file.
func (s *Store) MetadataPath() string { return filepath.Join(s.root, metadataFile) }

// DocumentPath returns the body path for id.
func (s *Store) DocumentPath(id string) string {
	return filepath.Join(s.root, documentsDir, id+".json")
}

// Subscribe registers a handler for committed mutations.
func (s *Store) Subscribe(h events.Handler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, h)
}

// emit delivers ev to every handler. Must be called without s.mu held.
func (s *Store) emit(ctx context.Context, ev events.Event) {
	s.handlersMu.RLock()
	handlers := append([]events.Handler(nil), s.handlers...)
	s.handlersMu.RUnlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			s.logger.Warn("event handler failed", "event", ev.Kind, "error", err)
		}
	}
}

// commit saves next as the metadata index and swaps it in. Caller holds s.mu.
func (s *Store) commit(next *catalog.Catalog) error {
	if err := next.Save(s.MetadataPath(), s.now()); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	s.cat = next
	return nil
}

// isNotExist reports whether err means a file is absent.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
