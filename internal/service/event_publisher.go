package service

import (
	"context"

	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/pkg/events"
	"ai-companion-be/pkg/nats"
)

// IEventPublisher emits best-effort lifecycle events. Failures are logged
// and swallowed; the bus is never on the request path.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

type NatsEventPublisher struct {
	publisher *nats.Publisher // nil when NATS is not configured/reachable
	logger    logger.ILogger
}

func NewNatsEventPublisher(publisher *nats.Publisher, sysLogger logger.ILogger) IEventPublisher {
	return &NatsEventPublisher{
		publisher: publisher,
		logger:    sysLogger,
	}
}

func (p *NatsEventPublisher) Publish(ctx context.Context, event events.Event) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("event-publisher", "Failed to publish event", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
	}
}
