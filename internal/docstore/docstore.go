package docstore

import (
	"context"
	"errors"
)

// Package docstore contains the document-storage abstraction used by the DAL
// dispatcher. Implementations live in subpackages (e.g. postgres) inside this
// directory. A Store is always scoped to one tenant's database.

// Record is one document: a flat mapping of field name to JSON-compatible
// value. The "id" key is reserved; read operations populate it from the
// document id, write operations must not include it.
type Record map[string]any

// ErrNoDocument is returned by Update when the target document does not exist.
// Get deliberately does NOT use it: a missing document on read is a valid
// empty result, not an error.
var ErrNoDocument = errors.New("document does not exist")

// Store defines data access for documents within one tenant.
// No business logic here — strictly persistence operations. Timestamp
// bookkeeping is owned by the dispatcher, which bakes createdAt/lastModified
// into the data before calling in.
type Store interface {
	// Get returns the document with the given id, or (nil, nil) if absent.
	Get(ctx context.Context, collection, id string) (Record, error)

	// List returns all documents in a collection, ordered by id.
	List(ctx context.Context, collection string) ([]Record, error)

	// Add inserts a document under a server-assigned id and returns that id.
	Add(ctx context.Context, collection string, data Record) (string, error)

	// Set upserts the document at id. With merge=false the stored data is
	// replaced wholesale; with merge=true incoming fields are shallow-merged
	// over the existing ones.
	Set(ctx context.Context, collection, id string, data Record, merge bool) error

	// Update shallow-merges patch into an existing document. Returns
	// ErrNoDocument when there is nothing to update.
	Update(ctx context.Context, collection, id string, patch Record) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error
}
