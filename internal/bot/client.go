package bot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/pkg/tribes"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	Data   json.RawMessage `json:"data"`
}

// RejectedError is a 422 from the actions endpoint.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "action rejected: " + e.Reason }

// CreatedGame is the server's reply to a game creation.
type CreatedGame struct {
	Game struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"game"`
	Seats map[string]string `json:"seats"`
}

// Client is an HTTP+WebSocket client for one seat of a remote game.
type Client struct {
	name     string
	baseURL  string
	token    string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a client targeting the given server URL. token is the
// seat token; it may be empty for unauthenticated calls.
func NewClient(name, baseURL, token string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		events:  make(chan WSEvent, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// CreateGame creates a game. bots maps tribes to server-side strategies.
func (c *Client) CreateGame(name string, seed int64, bots map[string]string) (*CreatedGame, error) {
	body := map[string]any{"name": name, "seed": seed, "bots": bots}
	var out CreatedGame
	if err := c.do(http.MethodPost, "/api/v1/games", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetState fetches and decodes the current state document.
func (c *Client) GetState(gameID string) (*tribes.GameState, error) {
	var raw json.RawMessage
	if err := c.do(http.MethodGet, "/api/v1/games/"+gameID+"/state", nil, &raw); err != nil {
		return nil, err
	}
	return tribes.Load(raw)
}

// SubmitAction posts an action for the client's seat. A rule rejection is
// returned as *RejectedError.
func (c *Client) SubmitAction(gameID string, req tribes.ActionRequest) (*tribes.Diff, error) {
	var diff tribes.Diff
	if err := c.do(http.MethodPost, "/api/v1/games/"+gameID+"/actions", req, &diff); err != nil {
		return nil, err
	}
	return &diff, nil
}

// ConnectWS opens a WebSocket connection and starts listening for events.
func (c *Client) ConnectWS() error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// SubscribeGame sends a subscribe message for the given game.
func (c *Client) SubscribeGame(gameID string) error {
	msg := map[string]string{"action": "subscribe", "game_id": gameID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("bot", c.name).Msg("WS read error")
			}
			return
		}
		// The server batches queued events into one frame.
		for _, part := range bytes.Split(msg, []byte("\n")) {
			var event WSEvent
			if err := json.Unmarshal(part, &event); err != nil {
				continue
			}
			c.events <- event
		}
	}
}

// do sends a JSON request and decodes the response into out.
func (c *Client) do(method, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnprocessableEntity {
		var rej struct {
			Reason string `json:"reason"`
		}
		json.Unmarshal(body, &rej)
		return &RejectedError{Reason: rej.Reason}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsRejected reports whether err is a rule rejection from the server.
func IsRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}
