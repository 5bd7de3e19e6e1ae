package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const eventChannelPrefix = "tribes:events:"

// gameEvent is the envelope published on a game's channel.
type gameEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PublishEvent fans a game event out to every server subscribed to the game.
func (c *Client) PublishEvent(ctx context.Context, gameID, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	payload, err := json.Marshal(gameEvent{Type: eventType, Data: raw})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return c.rdb.Publish(ctx, eventChannelPrefix+gameID, payload).Err()
}

// SubscribeEvents relays events from every game channel to fn until ctx is done.
func (c *Client) SubscribeEvents(ctx context.Context, fn func(gameID, eventType string, data json.RawMessage)) {
	sub := c.rdb.PSubscribe(ctx, eventChannelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev gameEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed game event")
				continue
			}
			fn(strings.TrimPrefix(msg.Channel, eventChannelPrefix), ev.Type, ev.Data)
		}
	}
}
