package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id               uuid.UUID
	OriginalFilename string
	StoredFilename   string
	ContentType      string
	SizeBytes        int64
	Status           string
	ChunkCount       int
	Error            string
	IngestedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}
