package dto

import (
	"time"

	"github.com/google/uuid"
)

type DocumentResponse struct {
	Id               uuid.UUID  `json:"id"`
	OriginalFilename string     `json:"original_filename"`
	ContentType      string     `json:"content_type,omitempty"`
	SizeBytes        int64      `json:"size_bytes"`
	Status           string     `json:"status"`
	ChunkCount       int        `json:"chunk_count"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	IngestedAt       *time.Time `json:"ingested_at,omitempty"`
}

type UploadResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
}

type DeleteDocumentResponse struct {
	DocumentId    uuid.UUID `json:"document_id"`
	ChunksRemoved int64     `json:"chunks_removed"`
}

// IngestDocumentMessage is the payload published on the ingestion topic.
type IngestDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
