package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Message struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role           string         `gorm:"type:varchar(20);not null"` // user | assistant
	Content        string         `gorm:"type:text;not null"`
	Incomplete     bool           `gorm:"not null;default:false"`
	Sources        datatypes.JSON `gorm:"type:jsonb"` // chunk ids grounding an assistant turn
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}
