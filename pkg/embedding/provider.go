package embedding

import (
	"context"
	"errors"
	"math"
)

// Task types hint retrieval-oriented models at how the text will be used.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

// ErrUnavailable wraps any transport or backend failure so callers can react
// to "the embedding service is down" without parsing provider specifics.
var ErrUnavailable = errors.New("embedding backend unavailable")

// EmbeddingProvider defines the interface for generating text embeddings.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
	GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

// normalizeVector normalizes a vector to unit length (magnitude = 1).
// Cosine similarity over normalized vectors reduces to a dot product, and
// pgvector's cosine distance assumes it too.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	// Avoid division by zero
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
