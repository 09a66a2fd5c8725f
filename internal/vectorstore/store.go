// Package vectorstore keeps embedded text in named collections and answers
// nearest-neighbour queries over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Metadata keys written by the indexer.
const (
	MetaInputText = "input_text"
	MetaSummary   = "summary"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "my_embeddings_collection"

// ErrNotFound is returned when a record id is not in the collection.
var ErrNotFound = errors.New("record not found")

// Record is one stored embedding.
type Record struct {
	ID        string            `json:"id"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata"`
}

// Text returns the summary when present, else the input text.
func (r Record) Text() string {
	if s := strings.TrimSpace(r.Metadata[MetaSummary]); s != "" {
		return s
	}
	return r.Metadata[MetaInputText]
}

// Match is a query hit. Distance is the cosine distance (0 = identical).
type Match struct {
	Record
	Distance float64
}

// Store is a single collection.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, rec Record) error
	Query(ctx context.Context, embedding []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Backends accepted by Open.
const (
	BackendLocal    = "local"
	BackendPGVector = "pgvector"
)

// Options select a backend and a collection.
type Options struct {
	Backend    string
	Collection string
	// Path is the storage directory of the local backend.
	Path string
	// DatabaseURL is the Postgres connection string of the pgvector backend.
	DatabaseURL string
	// Dimensions fixes the pgvector column size. Zero leaves it unconstrained.
	Dimensions int
}

// Open returns the collection described by opts, creating it if needed.
func Open(ctx context.Context, opts Options) (Store, error) {
	if strings.TrimSpace(opts.Collection) == "" {
		opts.Collection = DefaultCollection
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendLocal:
		return OpenLocal(opts.Path, opts.Collection)
	case BackendPGVector:
		return OpenPGVector(ctx, opts.DatabaseURL, opts.Collection, opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", opts.Backend)
	}
}
