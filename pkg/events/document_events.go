package events

import (
	"time"

	"github.com/google/uuid"
)

// Document lifecycle event codes, published as events.<code> on the bus.
const (
	DocumentReady  = "document_ready"
	DocumentFailed = "document_failed"
)

func NewDocumentReadyEvent(documentId uuid.UUID, chunkCount int) Event {
	return BaseEvent{
		Type: DocumentReady,
		Data: map[string]interface{}{
			"document_id": documentId.String(),
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentFailedEvent(documentId uuid.UUID, reason string) Event {
	return BaseEvent{
		Type: DocumentFailed,
		Data: map[string]interface{}{
			"document_id": documentId.String(),
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}
