package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is one embedded slice of a document. Chunks are hard-deleted with
// their document; there is no soft-delete window for stale vectors.
type Chunk struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	ChunkIndex int
	Content    string
	Embedding  []float32
	TokenCount int
	CreatedAt  time.Time
}
