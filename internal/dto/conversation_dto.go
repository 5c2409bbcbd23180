package dto

import (
	"time"

	"github.com/google/uuid"
)

type MessageDTO struct {
	Id         uuid.UUID   `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Incomplete bool        `json:"incomplete,omitempty"`
	Sources    []uuid.UUID `json:"sources,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type ConversationResponse struct {
	ConversationId uuid.UUID    `json:"conversation_id"`
	Title          string       `json:"title"`
	Messages       []MessageDTO `json:"messages"`
	CreatedAt      time.Time    `json:"created_at"`
}

type ConversationSummaryDTO struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListConversationsResponse struct {
	Conversations []ConversationSummaryDTO `json:"conversations"`
	Limit         int                      `json:"limit"`
	Offset        int                      `json:"offset"`
}
