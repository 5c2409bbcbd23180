package vectorindex

import (
	"context"

	"github.com/google/uuid"
)

// ScoredChunk is a search hit coming back from the chunk store.
type ScoredChunk struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Text       string
	Score      float64
}

// ChunkSearcher is the slice of the chunk repository the pgvector index
// needs: a cosine similarity search over the chunks table.
type ChunkSearcher interface {
	SearchSimilarWithScore(ctx context.Context, vector []float32, k int, documentIDs []uuid.UUID) ([]ScoredChunk, error)
}

// PgvectorIndex serves searches straight from Postgres via the pgvector
// `<=>` operator. Upsert and delete are no-ops because the chunks table is
// the index; transactional writes there keep readers consistent.
type PgvectorIndex struct {
	searcher ChunkSearcher
}

var _ Index = &PgvectorIndex{}

func NewPgvectorIndex(searcher ChunkSearcher) *PgvectorIndex {
	return &PgvectorIndex{searcher: searcher}
}

func (p *PgvectorIndex) Upsert(ctx context.Context, entries []Entry) error {
	return nil
}

func (p *PgvectorIndex) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	return nil
}

func (p *PgvectorIndex) Search(ctx context.Context, vector []float32, k int, documentIDs []uuid.UUID) ([]Match, error) {
	if k <= 0 {
		k = 5
	}
	hits, err := p.searcher.SearchSimilarWithScore(ctx, vector, k, documentIDs)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			ChunkIndex: h.ChunkIndex,
			Text:       h.Text,
			Score:      h.Score,
		}
	}
	return matches, nil
}
