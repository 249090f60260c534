// Package docstore is the document-store contract the project engine
// consumes, with Firestore, Redis and in-memory backends.
//
// Documents are addressed by (collection, id) and hold values from the
// normalized tabular value set: int64, float64, bool, string, nil,
// map[string]any and []any.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound            = errors.New("document not found")
	ErrUnsupportedOperator = errors.New("unsupported query operator")
)

// OpEqual is the only query operator every backend supports.
const OpEqual = "=="

// Document is one query result.
type Document struct {
	ID   string
	Data map[string]any
}

// Store is a schemaless key-document database. It offers no transactions
// across documents.
type Store interface {
	// Get returns ErrNotFound when the document is absent.
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	// Set replaces the whole document.
	Set(ctx context.Context, collection, id string, doc map[string]any) error
	// Update writes each dotted field path in updates, leaving every other
	// field alone. It returns ErrNotFound when the document is absent.
	Update(ctx context.Context, collection, id string, updates map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	// Query returns every document whose field satisfies op against value.
	Query(ctx context.Context, collection, field, op string, value any) ([]Document, error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
