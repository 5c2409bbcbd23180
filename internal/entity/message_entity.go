package entity

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           string // "user" or "assistant"
	Content        string
	Incomplete     bool // true when the generating stream died mid-way
	SourceChunkIds []uuid.UUID
	CreatedAt      time.Time
}
