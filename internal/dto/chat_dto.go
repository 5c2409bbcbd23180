package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatRequest struct {
	Message        string      `json:"message" validate:"required"`
	ConversationId *uuid.UUID  `json:"conversation_id,omitempty"`
	DocumentIds    []uuid.UUID `json:"document_ids,omitempty" validate:"max=20"`
	Stream         bool        `json:"stream"`
}

// SourceDTO points at one retrieved chunk that grounded the answer.
type SourceDTO struct {
	DocumentId uuid.UUID `json:"document_id"`
	ChunkId    uuid.UUID `json:"chunk_id"`
	ChunkIndex int       `json:"chunk_index"`
	Preview    string    `json:"preview"`
	Score      float64   `json:"score"`
}

type ChatResponse struct {
	ConversationId uuid.UUID   `json:"conversation_id"`
	Response       string      `json:"response"`
	Timestamp      time.Time   `json:"timestamp"`
	Sources        []SourceDTO `json:"sources,omitempty"`
}
