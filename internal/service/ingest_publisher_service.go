package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"ai-companion-be/internal/dto"
)

// IIngestPublisher hands documents to the async ingestion pipeline.
type IIngestPublisher interface {
	PublishIngestJob(ctx context.Context, documentId uuid.UUID) error
}

type IngestPublisher struct {
	topic  string
	pubSub *gochannel.GoChannel
}

func NewIngestPublisher(topic string, pubSub *gochannel.GoChannel) IIngestPublisher {
	return &IngestPublisher{
		topic:  topic,
		pubSub: pubSub,
	}
}

func (p *IngestPublisher) PublishIngestJob(ctx context.Context, documentId uuid.UUID) error {
	payload, err := json.Marshal(dto.IngestDocumentMessage{DocumentId: documentId})
	if err != nil {
		return fmt.Errorf("marshal ingest job: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topic, msg)
}
