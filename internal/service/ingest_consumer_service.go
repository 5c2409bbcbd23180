package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"ai-companion-be/internal/constant"
	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/specification"
	"ai-companion-be/internal/repository/unitofwork"
	"ai-companion-be/pkg/embedding"
	"ai-companion-be/pkg/events"
	"ai-companion-be/pkg/textsplit"
	"ai-companion-be/pkg/vectorindex"
)

type IIngestConsumerService interface {
	Consume(ctx context.Context) error
}

// TextExtractor is the extraction seam; the real implementation shells out
// to pdftotext for PDFs.
type TextExtractor interface {
	Text(ctx context.Context, path string) (string, error)
}

type ingestConsumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	extractor         TextExtractor
	embeddingProvider embedding.EmbeddingProvider
	index             vectorindex.Index
	events            IEventPublisher
	logger            logger.ILogger
	uploadDir         string
	chunkSize         int
	chunkOverlap      int
}

func NewIngestConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	extractor TextExtractor,
	embeddingProvider embedding.EmbeddingProvider,
	index vectorindex.Index,
	eventPublisher IEventPublisher,
	sysLogger logger.ILogger,
	uploadDir string,
	chunkSize, chunkOverlap int,
) IIngestConsumerService {
	return &ingestConsumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		extractor:         extractor,
		embeddingProvider: embeddingProvider,
		index:             index,
		events:            eventPublisher,
		logger:            sysLogger,
		uploadDir:         uploadDir,
		chunkSize:         chunkSize,
		chunkOverlap:      chunkOverlap,
	}
}

func (cs *ingestConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *ingestConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("ingest-consumer", "Processing document", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
	})

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		cs.logger.Error("ingest-consumer", "Failed to load document", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack() // retriable
		return
	}
	if document == nil {
		// Deleted between upload and processing; nothing to do.
		msg.Ack()
		return
	}

	// 1. Extract text. A failure here is the file's fault, not ours: mark
	// failed and move on, re-ingestion can retry later.
	text, err := cs.extractor.Text(ctx, filepath.Join(cs.uploadDir, document.StoredFilename))
	if err != nil {
		cs.markFailed(ctx, document.Id, "extraction failed: "+err.Error())
		msg.Ack()
		return
	}
	if strings.TrimSpace(text) == "" {
		cs.markFailed(ctx, document.Id, "document contains no extractable text")
		msg.Ack()
		return
	}

	// 2. Chunk.
	spans := textsplit.Split(text, cs.chunkSize, cs.chunkOverlap)

	// 3. Embed all chunks before touching the database: ingestion is
	// all-or-nothing, a partial batch never reaches storage.
	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}
	vectors, err := cs.embeddingProvider.GenerateBatch(ctx, texts, embedding.TaskDocument)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			cs.markFailed(ctx, document.Id, "embedding backend unavailable")
		} else {
			cs.markFailed(ctx, document.Id, "embedding failed: "+err.Error())
		}
		msg.Ack()
		return
	}

	newChunks := make([]*entity.Chunk, len(spans))
	for i, span := range spans {
		newChunks[i] = &entity.Chunk{
			Id:         uuid.New(),
			DocumentId: document.Id,
			ChunkIndex: span.Index,
			Content:    span.Text,
			Embedding:  vectors[i],
			TokenCount: approximateTokens(span.Text),
			CreatedAt:  time.Now(),
		}
	}

	// 4. Swap chunks and flip status in one transaction.
	if err := uow.Begin(ctx); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to begin transaction", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to delete old chunks", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}
	if err := uow.ChunkRepository().CreateBulk(ctx, newChunks); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to create chunks", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	now := time.Now()
	document.Status = constant.DocumentStatusReady
	document.ChunkCount = len(newChunks)
	document.Error = ""
	document.IngestedAt = &now
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to update document", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to commit transaction", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	// 5. Refresh the serving index after commit. Delete-then-upsert means a
	// concurrent search sees the old batch, nothing, or the new batch,
	// never a mix.
	if err := cs.index.DeleteByDocument(ctx, document.Id); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to clear index entries", map[string]interface{}{"error": err.Error()})
	}
	entries := make([]vectorindex.Entry, len(newChunks))
	for i, c := range newChunks {
		entries[i] = vectorindex.Entry{
			ChunkID:    c.Id,
			DocumentID: c.DocumentId,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Content,
			Vector:     c.Embedding,
		}
	}
	if err := cs.index.Upsert(ctx, entries); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to index chunks", map[string]interface{}{"error": err.Error()})
	}

	cs.events.Publish(ctx, events.NewDocumentReadyEvent(document.Id, len(newChunks)))

	cs.logger.Info("ingest-consumer", "Document ready", map[string]interface{}{
		"document_id": document.Id.String(),
		"chunk_count": len(newChunks),
	})
	msg.Ack()
}

// markFailed records the failure reason on the document so clients polling
// GET /documents can see what went wrong. Chunks from an earlier successful
// ingestion are removed too: a failed document must never stay searchable.
func (cs *ingestConsumerService) markFailed(ctx context.Context, documentId uuid.UUID, reason string) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil || document == nil {
		cs.logger.Error("ingest-consumer", "Failed to load document for failure marking", map[string]interface{}{
			"document_id": documentId.String(),
		})
		return
	}

	if err := uow.Begin(ctx); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to begin transaction", map[string]interface{}{"error": err.Error()})
		return
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to delete chunks of failed document", map[string]interface{}{
			"document_id": documentId.String(),
			"error":       err.Error(),
		})
		return
	}

	document.Status = constant.DocumentStatusFailed
	document.Error = reason
	document.ChunkCount = 0
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to mark document failed", map[string]interface{}{
			"document_id": documentId.String(),
			"error":       err.Error(),
		})
		return
	}
	if err := uow.Commit(); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to commit transaction", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := cs.index.DeleteByDocument(ctx, documentId); err != nil {
		cs.logger.Error("ingest-consumer", "Failed to clear index entries", map[string]interface{}{
			"document_id": documentId.String(),
			"error":       err.Error(),
		})
	}

	cs.events.Publish(ctx, events.NewDocumentFailedEvent(documentId, reason))

	cs.logger.Warn("ingest-consumer", "Document ingestion failed", map[string]interface{}{
		"document_id": documentId.String(),
		"reason":      reason,
	})
}

// approximateTokens estimates the token count of a chunk for prompt
// budgeting; ~4 characters per token holds for English prose.
func approximateTokens(text string) int {
	return (len(text) + 3) / 4
}
