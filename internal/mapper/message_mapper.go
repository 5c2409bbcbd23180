package mapper

import (
	"encoding/json"

	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MessageMapper struct{}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{}
}

func (m *MessageMapper) ToEntity(e *model.Message) *entity.Message {
	if e == nil {
		return nil
	}

	var sources []uuid.UUID
	if len(e.Sources) > 0 {
		// A malformed sources column degrades to "no sources" rather than
		// failing the whole read.
		_ = json.Unmarshal(e.Sources, &sources)
	}

	return &entity.Message{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		Role:           e.Role,
		Content:        e.Content,
		Incomplete:     e.Incomplete,
		SourceChunkIds: sources,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *MessageMapper) ToModel(e *entity.Message) *model.Message {
	if e == nil {
		return nil
	}

	var sources datatypes.JSON
	if len(e.SourceChunkIds) > 0 {
		if data, err := json.Marshal(e.SourceChunkIds); err == nil {
			sources = datatypes.JSON(data)
		}
	}

	return &model.Message{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		Role:           e.Role,
		Content:        e.Content,
		Incomplete:     e.Incomplete,
		Sources:        sources,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *MessageMapper) ToEntities(messages []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(messages))
	for i, e := range messages {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
