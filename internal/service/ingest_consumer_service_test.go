package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-be/internal/constant"
	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/entity"
	"ai-companion-be/pkg/embedding"
	"ai-companion-be/pkg/vectorindex"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Text(ctx context.Context, path string) (string, error) {
	return f.text, f.err
}

type fakeEmbeddingProvider struct {
	err error
}

func (f *fakeEmbeddingProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbeddingProvider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func newIngestConsumer(store *fakeStore, extractor TextExtractor, embedder embedding.EmbeddingProvider, index vectorindex.Index) *ingestConsumerService {
	return &ingestConsumerService{
		topicName:         "INGEST_DOCUMENT",
		uowFactory:        store.factory(),
		extractor:         extractor,
		embeddingProvider: embedder,
		index:             index,
		events:            nopEventPublisher{},
		logger:            nopLogger{},
		uploadDir:         "/tmp/uploads",
		chunkSize:         100,
		chunkOverlap:      20,
	}
}

func ingestMessage(t *testing.T, documentId uuid.UUID) *message.Message {
	t.Helper()
	payload, err := json.Marshal(dto.IngestDocumentMessage{DocumentId: documentId})
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func seedProcessingDocument(store *fakeStore) *entity.Document {
	doc := &entity.Document{
		Id:               uuid.New(),
		OriginalFilename: "report.txt",
		StoredFilename:   "stored.txt",
		Status:           constant.DocumentStatusProcessing,
	}
	store.documents[doc.Id] = doc
	return doc
}

func TestProcessMessageHappyPath(t *testing.T) {
	store := newFakeStore()
	doc := seedProcessingDocument(store)
	index := vectorindex.NewMemoryIndex()
	text := strings.Repeat("All work and no play makes a dull document. ", 10)
	consumer := newIngestConsumer(store, &fakeExtractor{text: text}, &fakeEmbeddingProvider{}, index)

	consumer.processMessage(context.Background(), ingestMessage(t, doc.Id))

	assert.Equal(t, constant.DocumentStatusReady, doc.Status)
	assert.Empty(t, doc.Error)
	require.NotNil(t, doc.IngestedAt)

	assert.NotEmpty(t, store.chunks)
	assert.Equal(t, len(store.chunks), doc.ChunkCount)
	assert.Equal(t, len(store.chunks), index.Size())

	for i, c := range store.chunks {
		assert.Equal(t, doc.Id, c.DocumentId)
		assert.Equal(t, i, c.ChunkIndex)
		assert.NotEmpty(t, c.Embedding)
		assert.Greater(t, c.TokenCount, 0)
	}
}

func TestProcessMessageExtractionFailureMarksFailed(t *testing.T) {
	store := newFakeStore()
	doc := seedProcessingDocument(store)
	consumer := newIngestConsumer(store, &fakeExtractor{err: errors.New("pdftotext failed")}, &fakeEmbeddingProvider{}, vectorindex.NewMemoryIndex())

	consumer.processMessage(context.Background(), ingestMessage(t, doc.Id))

	assert.Equal(t, constant.DocumentStatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "extraction failed")
	assert.Empty(t, store.chunks)
}

func TestProcessMessageEmptyTextMarksFailed(t *testing.T) {
	store := newFakeStore()
	doc := seedProcessingDocument(store)
	consumer := newIngestConsumer(store, &fakeExtractor{text: "   \n\t "}, &fakeEmbeddingProvider{}, vectorindex.NewMemoryIndex())

	consumer.processMessage(context.Background(), ingestMessage(t, doc.Id))

	assert.Equal(t, constant.DocumentStatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "no extractable text")
}

func TestProcessMessageEmbeddingOutageIsAllOrNothing(t *testing.T) {
	store := newFakeStore()
	doc := seedProcessingDocument(store)
	consumer := newIngestConsumer(store, &fakeExtractor{text: "some content"}, &fakeEmbeddingProvider{err: embedding.ErrUnavailable}, vectorindex.NewMemoryIndex())

	consumer.processMessage(context.Background(), ingestMessage(t, doc.Id))

	assert.Equal(t, constant.DocumentStatusFailed, doc.Status)
	assert.Equal(t, "embedding backend unavailable", doc.Error)
	assert.Empty(t, store.chunks, "no partial batch may reach storage")
}

func TestProcessMessageFailedReingestRemovesPreviousChunks(t *testing.T) {
	store := newFakeStore()
	doc := seedProcessingDocument(store)
	doc.ChunkCount = 1
	old := &entity.Chunk{Id: uuid.New(), DocumentId: doc.Id, ChunkIndex: 0, Content: "old ready content"}
	store.chunks = append(store.chunks, old)
	index := vectorindex.NewMemoryIndex()
	require.NoError(t, index.Upsert(context.Background(), []vectorindex.Entry{{
		ChunkID: old.Id, DocumentID: doc.Id, Text: old.Content, Vector: []float32{1, 0},
	}}))

	consumer := newIngestConsumer(store, &fakeExtractor{text: "fresh content"}, &fakeEmbeddingProvider{err: embedding.ErrUnavailable}, index)
	consumer.processMessage(context.Background(), ingestMessage(t, doc.Id))

	// The previous ingestion's batch must not stay searchable under a
	// failed document.
	assert.Equal(t, constant.DocumentStatusFailed, doc.Status)
	assert.Zero(t, doc.ChunkCount)
	assert.Empty(t, store.chunks)
	assert.Equal(t, 0, index.Size())
}

func TestProcessMessageDeletedDocumentIsSkipped(t *testing.T) {
	store := newFakeStore()
	consumer := newIngestConsumer(store, &fakeExtractor{text: "content"}, &fakeEmbeddingProvider{}, vectorindex.NewMemoryIndex())

	// Document was deleted between upload and processing.
	consumer.processMessage(context.Background(), ingestMessage(t, uuid.New()))

	assert.Empty(t, store.chunks)
	assert.Empty(t, store.documents)
}

func TestProcessMessageReingestReplacesOldChunks(t *testing.T) {
	store := newFakeStore()
	doc := seedProcessingDocument(store)
	stale := &entity.Chunk{Id: uuid.New(), DocumentId: doc.Id, ChunkIndex: 0, Content: "stale"}
	store.chunks = append(store.chunks, stale)
	index := vectorindex.NewMemoryIndex()
	require.NoError(t, index.Upsert(context.Background(), []vectorindex.Entry{{
		ChunkID: stale.Id, DocumentID: doc.Id, Text: stale.Content, Vector: []float32{1, 0},
	}}))

	consumer := newIngestConsumer(store, &fakeExtractor{text: "fresh content"}, &fakeEmbeddingProvider{}, index)
	consumer.processMessage(context.Background(), ingestMessage(t, doc.Id))

	assert.Equal(t, constant.DocumentStatusReady, doc.Status)
	for _, c := range store.chunks {
		assert.NotEqual(t, "stale", c.Content)
	}
	assert.Equal(t, len(store.chunks), index.Size())
}

func TestProcessMessageMalformedPayloadIsDropped(t *testing.T) {
	store := newFakeStore()
	consumer := newIngestConsumer(store, &fakeExtractor{text: "content"}, &fakeEmbeddingProvider{}, vectorindex.NewMemoryIndex())

	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	consumer.processMessage(context.Background(), msg)

	assert.Empty(t, store.chunks)
}

func TestApproximateTokens(t *testing.T) {
	assert.Equal(t, 0, approximateTokens(""))
	assert.Equal(t, 1, approximateTokens("abc"))
	assert.Equal(t, 1, approximateTokens("abcd"))
	assert.Equal(t, 2, approximateTokens("abcde"))
}
