package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-be/internal/apperrors"
	"ai-companion-be/internal/constant"
	"ai-companion-be/internal/entity"
	"ai-companion-be/pkg/vectorindex"
)

type fakeIngestPublisher struct {
	published []uuid.UUID
	err       error
}

func (f *fakeIngestPublisher) PublishIngestJob(ctx context.Context, documentId uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentId)
	return nil
}

func newDocumentService(t *testing.T, store *fakeStore, publisher *fakeIngestPublisher, index vectorindex.Index) (IDocumentService, string) {
	t.Helper()
	uploadDir := t.TempDir()
	return NewDocumentService(store.factory(), publisher, index, nopLogger{}, uploadDir), uploadDir
}

func TestUploadAcceptsTxtAndQueuesIngestion(t *testing.T) {
	store := newFakeStore()
	publisher := &fakeIngestPublisher{}
	svc, uploadDir := newDocumentService(t, store, publisher, vectorindex.NewMemoryIndex())

	res, err := svc.Upload(context.Background(), "notes.txt", "text/plain", []byte("hello"))

	require.NoError(t, err)
	assert.Equal(t, constant.DocumentStatusProcessing, res.Status)
	require.Contains(t, store.documents, res.DocumentId)

	doc := store.documents[res.DocumentId]
	assert.Equal(t, "notes.txt", doc.OriginalFilename)
	assert.Equal(t, res.DocumentId.String()+".txt", doc.StoredFilename)
	assert.Equal(t, int64(5), doc.SizeBytes)

	// The raw bytes land on disk under the stored name.
	data, err := os.ReadFile(filepath.Join(uploadDir, doc.StoredFilename))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Equal(t, []uuid.UUID{res.DocumentId}, publisher.published)
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	store := newFakeStore()
	publisher := &fakeIngestPublisher{}
	svc, _ := newDocumentService(t, store, publisher, vectorindex.NewMemoryIndex())

	_, err := svc.Upload(context.Background(), "slides.pptx", "application/octet-stream", []byte("x"))

	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
	assert.Empty(t, store.documents)
	assert.Empty(t, publisher.published)
}

func TestGetUnknownDocumentIsNotFound(t *testing.T) {
	store := newFakeStore()
	svc, _ := newDocumentService(t, store, &fakeIngestPublisher{}, vectorindex.NewMemoryIndex())

	_, err := svc.Get(context.Background(), uuid.New())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteRemovesChunksIndexEntriesAndFile(t *testing.T) {
	store := newFakeStore()
	index := vectorindex.NewMemoryIndex()
	svc, uploadDir := newDocumentService(t, store, &fakeIngestPublisher{}, index)

	docId := uuid.New()
	storedFilename := docId.String() + ".txt"
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, storedFilename), []byte("content"), 0o644))
	store.documents[docId] = &entity.Document{
		Id:             docId,
		StoredFilename: storedFilename,
		Status:         constant.DocumentStatusReady,
	}

	chunkId := uuid.New()
	store.chunks = append(store.chunks, &entity.Chunk{Id: chunkId, DocumentId: docId, Content: "c"})
	require.NoError(t, index.Upsert(context.Background(), []vectorindex.Entry{{
		ChunkID: chunkId, DocumentID: docId, Text: "c", Vector: []float32{1, 0},
	}}))

	res, err := svc.Delete(context.Background(), docId)

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ChunksRemoved)
	assert.NotContains(t, store.documents, docId)
	assert.Empty(t, store.chunks)
	assert.Equal(t, 0, index.Size())

	_, statErr := os.Stat(filepath.Join(uploadDir, storedFilename))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteUnknownDocumentIsNotFound(t *testing.T) {
	store := newFakeStore()
	svc, _ := newDocumentService(t, store, &fakeIngestPublisher{}, vectorindex.NewMemoryIndex())

	_, err := svc.Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReingestResetsStatusAndRepublishes(t *testing.T) {
	store := newFakeStore()
	publisher := &fakeIngestPublisher{}
	svc, uploadDir := newDocumentService(t, store, publisher, vectorindex.NewMemoryIndex())

	docId := uuid.New()
	storedFilename := docId.String() + ".txt"
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, storedFilename), []byte("content"), 0o644))
	store.documents[docId] = &entity.Document{
		Id:             docId,
		StoredFilename: storedFilename,
		Status:         constant.DocumentStatusFailed,
		Error:          "embedding backend unavailable",
	}

	res, err := svc.Reingest(context.Background(), docId)

	require.NoError(t, err)
	assert.Equal(t, constant.DocumentStatusProcessing, res.Status)
	assert.Empty(t, res.Error)
	assert.Equal(t, []uuid.UUID{docId}, publisher.published)
}

func TestReingestFailsWhenStoredFileMissing(t *testing.T) {
	store := newFakeStore()
	publisher := &fakeIngestPublisher{}
	svc, _ := newDocumentService(t, store, publisher, vectorindex.NewMemoryIndex())

	docId := uuid.New()
	store.documents[docId] = &entity.Document{
		Id:             docId,
		StoredFilename: docId.String() + ".txt",
		Status:         constant.DocumentStatusFailed,
	}

	_, err := svc.Reingest(context.Background(), docId)

	require.Error(t, err)
	assert.Empty(t, publisher.published)
	assert.Equal(t, constant.DocumentStatusFailed, store.documents[docId].Status)
}
