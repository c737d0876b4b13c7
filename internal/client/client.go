package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/twentyone/internal/server" // Reuse message types
)

// Client is a WebSocket client for a twentyone server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	playerID  int64
	roomCode  string
	closeOnce sync.Once

	// Event handlers
	eventHandlers map[server.MessageType]map[int]EventHandler
	nextHandler   int
}

// EventHandler is a function that handles incoming events
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType]map[int]EventHandler),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// request sends a typed request tagged with a fresh request id and returns
// the id so callers can match the reply.
func (c *Client) request(messageType server.MessageType, data any) (string, error) {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return "", err
	}
	msg.RequestID = uuid.NewString()
	return msg.RequestID, c.SendMessage(msg)
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type, "request", msg.RequestID)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// eventProcessor processes incoming messages and dispatches to handlers
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches messages to registered handlers in arrival order
func (c *Client) handleMessage(msg *server.Message) {
	c.mu.RLock()
	handlers := make([]EventHandler, 0, len(c.eventHandlers[msg.Type]))
	for _, handler := range c.eventHandlers[msg.Type] {
		handlers = append(handlers, handler)
	}
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
		return
	}
	for _, handler := range handlers {
		handler(msg)
	}
}

// AddEventHandler adds an event handler for a specific message type and
// returns a function that removes it
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eventHandlers[messageType] == nil {
		c.eventHandlers[messageType] = make(map[int]EventHandler)
	}
	id := c.nextHandler
	c.nextHandler++
	c.eventHandlers[messageType][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.eventHandlers[messageType], id)
	}
}

// Auth identifies the connection as playerID
func (c *Client) Auth(playerID int64, playerName string) error {
	c.mu.Lock()
	c.playerID = playerID
	c.mu.Unlock()

	_, err := c.request(server.MessageTypeAuth, server.AuthData{
		PlayerID:   playerID,
		PlayerName: playerName,
	})
	return err
}

// ListRooms requests the rooms that are waiting for players
func (c *Client) ListRooms() error {
	_, err := c.request(server.MessageTypeListRooms, struct{}{})
	return err
}

// CreateRoom opens a room hosted by this player
func (c *Client) CreateRoom(maxSeats int, stake int64) error {
	_, err := c.request(server.MessageTypeCreateRoom, server.CreateRoomData{
		MaxSeats: maxSeats,
		Stake:    stake,
	})
	return err
}

// JoinRoom takes a seat in a waiting room
func (c *Client) JoinRoom(code string) error {
	c.SetRoomCode(code)
	_, err := c.request(server.MessageTypeJoinRoom, server.RoomRequestData{RoomCode: code})
	return err
}

// LeaveRoom gives up the seat in a room
func (c *Client) LeaveRoom(code string) error {
	_, err := c.request(server.MessageTypeLeaveRoom, server.RoomRequestData{RoomCode: code})
	return err
}

// StartGame deals a hand in a room this player hosts
func (c *Client) StartGame(code string) error {
	_, err := c.request(server.MessageTypeStartGame, server.RoomRequestData{RoomCode: code})
	return err
}

// CloseRoom closes a waiting room this player hosts
func (c *Client) CloseRoom(code string) error {
	_, err := c.request(server.MessageTypeCloseRoom, server.RoomRequestData{RoomCode: code})
	return err
}

// Act answers the turn prompt identified by seq
func (c *Client) Act(code string, action string, seq int) error {
	_, err := c.request(server.MessageTypePlayerAction, server.PlayerActionData{
		RoomCode: code,
		Action:   action,
		Seq:      seq,
	})
	return err
}

// Balance requests this player's balance
func (c *Client) Balance() error {
	_, err := c.request(server.MessageTypeBalance, struct{}{})
	return err
}

// TopPlayers requests the leaderboard
func (c *Client) TopPlayers(limit int) error {
	_, err := c.request(server.MessageTypeTopPlayers, server.TopPlayersData{Limit: limit})
	return err
}

// SetRoomCode sets the current room code
func (c *Client) SetRoomCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

// GetRoomCode returns the current room code
func (c *Client) GetRoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// GetPlayerID returns the authenticated player id
func (c *Client) GetPlayerID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// Expect registers for the next message of messageType and returns a wait
// function for it. Register before sending the request that triggers the
// reply so a fast response is not missed.
func (c *Client) Expect(messageType server.MessageType) func(timeout time.Duration) (*server.Message, error) {
	responseChan := make(chan *server.Message, 1)

	remove := c.AddEventHandler(messageType, func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	})

	return func(timeout time.Duration) (*server.Message, error) {
		defer remove()

		select {
		case msg := <-responseChan:
			return msg, nil
		case <-time.After(timeout):
			return nil, fmt.Errorf("timeout waiting for %s", messageType)
		case <-c.ctx.Done():
			return nil, c.ctx.Err()
		}
	}
}

// Authenticate sends Auth and waits for the server's answer
func (c *Client) Authenticate(playerID int64, playerName string, timeout time.Duration) error {
	wait := c.Expect(server.MessageTypeAuthResponse)
	if err := c.Auth(playerID, playerName); err != nil {
		return err
	}
	msg, err := wait(timeout)
	if err != nil {
		return err
	}

	var resp server.AuthResponseData
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("authentication failed: %s", resp.Error)
	}
	return nil
}
