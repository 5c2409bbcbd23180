package vectorindex

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryIndex is an in-process brute-force cosine index. Good for corpora
// up to a few hundred thousand chunks; rebuilt from the chunk table on
// startup.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
	dim     int
}

var _ Index = &MemoryIndex{}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[uuid.UUID]Entry),
	}
}

// Upsert inserts or replaces the whole batch under one write lock, so a
// concurrent Search sees either none of it or all of it.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if m.dim == 0 {
			m.dim = len(e.Vector)
		}
		if len(e.Vector) != m.dim {
			return fmt.Errorf("%w: dimension mismatch, index holds %d-dim vectors, got %d", ErrCorrupted, m.dim, len(e.Vector))
		}
	}
	for _, e := range entries {
		m.entries[e.ChunkID] = e
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int, documentIDs []uuid.UUID) ([]Match, error) {
	if k <= 0 {
		k = 5
	}

	var filter map[uuid.UUID]struct{}
	if len(documentIDs) > 0 {
		filter = make(map[uuid.UUID]struct{}, len(documentIDs))
		for _, id := range documentIDs {
			filter[id] = struct{}{}
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dim != 0 && len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d", ErrCorrupted, len(vector), m.dim)
	}

	matches := make([]Match, 0, len(m.entries))
	for _, e := range m.entries {
		if filter != nil {
			if _, ok := filter[e.DocumentID]; !ok {
				continue
			}
		}
		matches = append(matches, Match{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			ChunkIndex: e.ChunkIndex,
			Text:       e.Text,
			Score:      dot(vector, e.Vector),
		})
	}

	// Equal scores tie-break on chunk id so results are deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return bytes.Compare(matches[i].ChunkID[:], matches[j].ChunkID[:]) < 0
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MemoryIndex) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		if e.DocumentID == documentID {
			delete(m.entries, id)
		}
	}
	return nil
}

// Size returns the number of indexed chunks.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// dot assumes both vectors are unit-normalized, making this the cosine
// similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
