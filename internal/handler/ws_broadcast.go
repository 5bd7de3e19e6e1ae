package handler

import "encoding/json"

// BroadcastGameEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastGameEvent(gameID string, eventType string, data any) {
	h.BroadcastToGame(gameID, WSEvent{
		Type:   eventType,
		GameID: gameID,
		Data:   data,
	})
}

// RelayEvent forwards an event received from another server process. It
// matches the callback of the Redis event subscription.
func (h *Hub) RelayEvent(gameID, eventType string, data json.RawMessage) {
	h.BroadcastGameEvent(gameID, eventType, data)
}
