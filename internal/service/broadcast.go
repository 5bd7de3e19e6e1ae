package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}

// EventPublisher publishes game events to other server processes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, gameID, eventType string, data any) error
}

// PublishingBroadcaster sends events through Redis pub/sub so every server
// process, including this one, relays them to its own WebSocket clients.
type PublishingBroadcaster struct {
	pub EventPublisher
}

// NewPublishingBroadcaster creates a PublishingBroadcaster.
func NewPublishingBroadcaster(pub EventPublisher) *PublishingBroadcaster {
	return &PublishingBroadcaster{pub: pub}
}

func (b *PublishingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.pub.PublishEvent(ctx, gameID, eventType, data); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Str("event", eventType).Msg("Failed to publish game event")
	}
}
