package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OriginalFilename string         `gorm:"type:text;not null"`
	StoredFilename   string         `gorm:"type:text;not null"`
	ContentType      string         `gorm:"type:varchar(100)"`
	SizeBytes        int64          `gorm:"not null;default:0"`
	Status           string         `gorm:"type:varchar(20);not null;index"` // processing | ready | failed
	ChunkCount       int            `gorm:"not null;default:0"`
	Error            string         `gorm:"type:text"`
	IngestedAt       *time.Time
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
