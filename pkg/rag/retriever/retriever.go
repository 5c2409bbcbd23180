package retriever

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ai-companion-be/pkg/embedding"
	"ai-companion-be/pkg/vectorindex"
)

// ContextChunk is one retrieved piece of grounding material, ordered by
// descending similarity.
type ContextChunk struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	ChunkIndex int
	Text       string
	Score      float64
}

// Retriever turns a query into scored context chunks: embed the query, run
// a similarity search, drop weak hits.
type Retriever struct {
	embedder embedding.EmbeddingProvider
	index    vectorindex.Index
	topK     int
	minScore float64
}

func New(embedder embedding.EmbeddingProvider, index vectorindex.Index, topK int, minScore float64) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		minScore: minScore,
	}
}

// Retrieve returns up to k chunks relevant to the query, optionally
// restricted to the given documents. An empty result is not an error; the
// caller decides how to answer without grounding.
func (r *Retriever) Retrieve(ctx context.Context, query string, documentIds []uuid.UUID, k int) ([]ContextChunk, error) {
	if k <= 0 {
		k = r.topK
	}

	queryVector, err := r.embedder.Generate(ctx, query, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.index.Search(ctx, queryVector, k, documentIds)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	chunks := make([]ContextChunk, 0, len(matches))
	for _, m := range matches {
		if m.Score < r.minScore {
			continue
		}
		chunks = append(chunks, ContextChunk{
			ChunkId:    m.ChunkID,
			DocumentId: m.DocumentID,
			ChunkIndex: m.ChunkIndex,
			Text:       m.Text,
			Score:      m.Score,
		})
	}
	return chunks, nil
}
