package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ai-companion-be/internal/apperrors"
	"ai-companion-be/internal/constant"
	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/specification"
	"ai-companion-be/internal/repository/unitofwork"
	"ai-companion-be/pkg/extract"
	"ai-companion-be/pkg/vectorindex"
)

type IDocumentService interface {
	Upload(ctx context.Context, originalFilename, contentType string, data []byte) (*dto.UploadResponse, error)
	List(ctx context.Context) ([]*dto.DocumentResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) (*dto.DeleteDocumentResponse, error)
	Reingest(ctx context.Context, id uuid.UUID) (*dto.DocumentResponse, error)
}

type DocumentService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  IIngestPublisher
	index      vectorindex.Index
	logger     logger.ILogger
	uploadDir  string
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisher IIngestPublisher,
	index vectorindex.Index,
	sysLogger logger.ILogger,
	uploadDir string,
) IDocumentService {
	return &DocumentService{
		uowFactory: uowFactory,
		publisher:  publisher,
		index:      index,
		logger:     sysLogger,
		uploadDir:  uploadDir,
	}
}

// Upload validates the format, persists the raw file and the document row
// in processing state, then hands the id to the async ingestion pipeline.
func (s *DocumentService) Upload(ctx context.Context, originalFilename, contentType string, data []byte) (*dto.UploadResponse, error) {
	if !extract.Supported(originalFilename) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, originalFilename)
	}

	documentId := uuid.New()
	storedFilename := documentId.String() + strings.ToLower(filepath.Ext(originalFilename))

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	storedPath := filepath.Join(s.uploadDir, storedFilename)
	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	document := &entity.Document{
		Id:               documentId,
		OriginalFilename: originalFilename,
		StoredFilename:   storedFilename,
		ContentType:      contentType,
		SizeBytes:        int64(len(data)),
		Status:           constant.DocumentStatusProcessing,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, document); err != nil {
		// The row is the source of truth; remove the orphaned file.
		_ = os.Remove(storedPath)
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.publisher.PublishIngestJob(ctx, documentId); err != nil {
		s.logger.Error("document-service", "Failed to publish ingest job", map[string]interface{}{
			"document_id": documentId.String(),
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("publish ingest job: %w", err)
	}

	s.logger.Info("document-service", "Document accepted for ingestion", map[string]interface{}{
		"document_id": documentId.String(),
		"filename":    originalFilename,
		"size_bytes":  len(data),
	})

	return &dto.UploadResponse{
		DocumentId: documentId,
		Status:     document.Status,
	}, nil
}

func (s *DocumentService) List(ctx context.Context) ([]*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.DocumentResponse, len(documents))
	for i, d := range documents {
		responses[i] = toDocumentResponse(d)
	}
	return responses, nil
}

func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperrors.ErrNotFound
	}
	return toDocumentResponse(document), nil
}

// Delete removes the document, its chunks and its index entries. The row
// and chunks go in one transaction; the serving index is updated after
// commit so readers never see chunks of a deleted document resurface.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) (*dto.DeleteDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperrors.ErrNotFound
	}

	chunksRemoved, err := uow.ChunkRepository().Count(ctx, specification.ByDocumentID{DocumentID: id})
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete document: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if err := s.index.DeleteByDocument(ctx, id); err != nil {
		s.logger.Error("document-service", "Failed to drop document from index", map[string]interface{}{
			"document_id": id.String(),
			"error":       err.Error(),
		})
	}

	if document.StoredFilename != "" {
		if err := os.Remove(filepath.Join(s.uploadDir, document.StoredFilename)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("document-service", "Failed to remove stored file", map[string]interface{}{
				"document_id": id.String(),
				"error":       err.Error(),
			})
		}
	}

	s.logger.Info("document-service", "Document deleted", map[string]interface{}{
		"document_id":    id.String(),
		"chunks_removed": chunksRemoved,
	})

	return &dto.DeleteDocumentResponse{
		DocumentId:    id,
		ChunksRemoved: chunksRemoved,
	}, nil
}

// Reingest reprocesses a stored file from scratch, e.g. after a transient
// embedding outage left the document failed.
func (s *DocumentService) Reingest(ctx context.Context, id uuid.UUID) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperrors.ErrNotFound
	}

	if _, err := os.Stat(filepath.Join(s.uploadDir, document.StoredFilename)); err != nil {
		return nil, fmt.Errorf("stored file missing: %w", err)
	}

	document.Status = constant.DocumentStatusProcessing
	document.Error = ""
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishIngestJob(ctx, id); err != nil {
		return nil, fmt.Errorf("publish ingest job: %w", err)
	}

	s.logger.Info("document-service", "Document queued for re-ingestion", map[string]interface{}{
		"document_id": id.String(),
	})
	return toDocumentResponse(document), nil
}

func toDocumentResponse(d *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:               d.Id,
		OriginalFilename: d.OriginalFilename,
		ContentType:      d.ContentType,
		SizeBytes:        d.SizeBytes,
		Status:           d.Status,
		ChunkCount:       d.ChunkCount,
		Error:            d.Error,
		CreatedAt:        d.CreatedAt,
		IngestedAt:       d.IngestedAt,
	}
}
