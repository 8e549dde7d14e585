package events

import (
	"context"
	"time"

	"github.com/gzentall/ocrstore/pkg/models"
)

// Kind names a committed mutation.
type Kind string

const (
	DocumentCreated Kind = "document.created"
	DocumentUpdated Kind = "document.updated"
	DocumentDeleted Kind = "document.deleted"
	PersonRenamed   Kind = "person.renamed"
	PersonRemoved   Kind = "person.removed"
	PersonLinked    Kind = "person.linked"
	PersonUnlinked  Kind = "person.unlinked"
)

// Event is sent after a mutation has been persisted.
type Event struct {
	Kind       Kind              // What happened
	DocumentID string            // Document the mutation started from, if any
	PersonKey  string            // Person the mutation started from, if any
	Documents  []models.Document // Bodies written by the mutation
	Removed    []string          // Document IDs whose bodies were deleted
	Timestamp  time.Time         // When the mutation committed
}

// Handler receives committed events. Errors are logged by the sender.
type Handler func(ctx context.Context, ev Event) error
