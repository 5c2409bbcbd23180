package vectorindex

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCorrupted signals an internally inconsistent index (e.g. a vector of
// the wrong dimensionality slipped in).
var ErrCorrupted = errors.New("vector index corrupted")

// Entry is one indexed chunk. Vectors are expected unit-normalized so that
// cosine similarity reduces to a dot product.
type Entry struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Text       string
	Vector     []float32
}

// Match is a scored search hit. Score is cosine similarity in [-1, 1].
type Match struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Text       string
	Score      float64
}

// Index is the serving-side vector search surface. Implementations must be
// safe for concurrent use, and a batch Upsert must become visible
// atomically: readers see either none or all of the batch.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, k int, documentIDs []uuid.UUID) ([]Match, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}
