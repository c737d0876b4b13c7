package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/room"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn       *websocket.Conn
	send       chan *Message
	playerID   int64
	playerName string
	logger     *log.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	closeOnce  sync.Once
	rooms      RoomService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, rooms RoomService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		rooms:  rooms,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx.Err() != nil {
		return ErrConnectionClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection", "player", c.playerID)
		go func() { _ = c.Close() }()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.playerName = name
}

// GetPlayer returns the associated player ID, or 0 before auth
func (c *Connection) GetPlayer() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) player() room.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return room.Player{ID: c.playerID, Name: c.playerName}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer(), "request", msg.RequestID)

	if msg.Type == MessageTypeAuth {
		var data AuthData
		if !c.decode(msg, &data) {
			return
		}
		c.handleAuth(msg, data)
		return
	}

	if c.GetPlayer() == 0 {
		c.sendError(msg, CodeNotAuthenticated, "Must authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeListRooms:
		c.handleListRooms(msg)

	case MessageTypeCreateRoom:
		var data CreateRoomData
		if c.decode(msg, &data) {
			c.handleCreateRoom(msg, data)
		}

	case MessageTypeJoinRoom:
		var data RoomRequestData
		if c.decode(msg, &data) {
			c.handleJoinRoom(msg, data)
		}

	case MessageTypeLeaveRoom:
		var data RoomRequestData
		if c.decode(msg, &data) {
			c.handleLeaveRoom(msg, data)
		}

	case MessageTypeStartGame:
		var data RoomRequestData
		if c.decode(msg, &data) {
			c.handleStartGame(msg, data)
		}

	case MessageTypeCloseRoom:
		var data RoomRequestData
		if c.decode(msg, &data) {
			c.handleCloseRoom(msg, data)
		}

	case MessageTypePlayerAction:
		var data PlayerActionData
		if c.decode(msg, &data) {
			c.handlePlayerAction(msg, data)
		}

	case MessageTypeBalance:
		c.handleBalance(msg)

	case MessageTypeTopPlayers:
		var data TopPlayersData
		if len(msg.Data) > 0 && !c.decode(msg, &data) {
			return
		}
		c.handleTopPlayers(msg, data)

	default:
		c.sendError(msg, CodeUnknownMessageType, "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) decode(msg *Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError(msg, CodeInvalidMessage, "Failed to parse "+msg.Type.String()+" data")
		return false
	}
	return true
}

// reply sends a response carrying the request's id
func (c *Connection) reply(req *Message, messageType MessageType, data any) {
	response, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	response.RequestID = req.RequestID
	_ = c.SendMessage(response)
}

// sendError sends an error message to the client
func (c *Connection) sendError(req *Message, code, message string) {
	c.reply(req, MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
}

// fail reports a room service error
func (c *Connection) fail(req *Message, err error) {
	code, message := errorCode(err)
	if code == CodeStoreError || code == CodeInternal {
		c.logger.Error("Request failed", "type", req.Type, "player", c.GetPlayer(), "error", err)
	} else {
		c.logger.Debug("Request rejected", "type", req.Type, "player", c.GetPlayer(), "code", code, "error", err)
	}
	c.sendError(req, code, message)
}

func (c *Connection) handleAuth(msg *Message, data AuthData) {
	c.logger.Info("Auth request", "player", data.PlayerID, "playerName", data.PlayerName)

	if data.PlayerID <= game.DealerID {
		c.reply(msg, MessageTypeAuthResponse, AuthResponseData{Success: false, Error: "player id must be positive"})
		return
	}

	c.SetPlayer(data.PlayerID, strings.TrimSpace(data.PlayerName))
	c.reply(msg, MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerID,
	})
}

func (c *Connection) handleListRooms(msg *Message) {
	rooms, err := c.rooms.ListOpenRooms(c.ctx)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(msg, MessageTypeRoomList, RoomListData{Rooms: rooms})
}

func (c *Connection) handleCreateRoom(msg *Message, data CreateRoomData) {
	c.logger.Info("Create room request", "player", c.GetPlayer(), "seats", data.MaxSeats, "stake", data.Stake)

	summary, err := c.rooms.CreateRoom(c.ctx, c.player(), data.MaxSeats, data.Stake)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(msg, MessageTypeRoomCreated, summary)
}

func (c *Connection) handleJoinRoom(msg *Message, data RoomRequestData) {
	c.logger.Info("Join room request", "room", data.RoomCode, "player", c.GetPlayer())

	summary, err := c.rooms.Join(c.ctx, data.RoomCode, c.player())
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(msg, MessageTypeRoomJoined, summary)
}

func (c *Connection) handleLeaveRoom(msg *Message, data RoomRequestData) {
	c.logger.Info("Leave room request", "room", data.RoomCode, "player", c.GetPlayer())

	result, err := c.rooms.Leave(c.ctx, data.RoomCode, c.GetPlayer())
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(msg, MessageTypeRoomLeft, RoomLeftData{
		RoomCode:    strings.ToUpper(strings.TrimSpace(data.RoomCode)),
		Refunded:    result.Refunded,
		Forfeited:   result.Forfeited,
		NewHostID:   result.NewHostID,
		RoomDeleted: result.RoomDeleted,
	})
}

// Starting and closing answer through room notifications.
func (c *Connection) handleStartGame(msg *Message, data RoomRequestData) {
	c.logger.Info("Start game request", "room", data.RoomCode, "player", c.GetPlayer())

	if err := c.rooms.Start(c.ctx, data.RoomCode, c.GetPlayer()); err != nil {
		c.fail(msg, err)
	}
}

func (c *Connection) handleCloseRoom(msg *Message, data RoomRequestData) {
	c.logger.Info("Close room request", "room", data.RoomCode, "player", c.GetPlayer())

	if err := c.rooms.Close(c.ctx, data.RoomCode, c.GetPlayer()); err != nil {
		c.fail(msg, err)
	}
}

func (c *Connection) handlePlayerAction(msg *Message, data PlayerActionData) {
	c.logger.Debug("Player action", "room", data.RoomCode, "player", c.GetPlayer(), "action", data.Action, "seq", data.Seq)

	action, err := game.ParseAction(data.Action)
	if err != nil {
		c.fail(msg, err)
		return
	}
	// The next prompt or the hand result is the response.
	if _, err := c.rooms.Act(c.ctx, data.RoomCode, c.GetPlayer(), action, data.Seq); err != nil {
		c.fail(msg, err)
	}
}

func (c *Connection) handleBalance(msg *Message) {
	balance, err := c.rooms.Balance(c.ctx, c.GetPlayer())
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(msg, MessageTypeBalance, BalanceData{Balance: balance})
}

func (c *Connection) handleTopPlayers(msg *Message, data TopPlayersData) {
	players, err := c.rooms.TopPlayers(c.ctx, data.Limit)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(msg, MessageTypeTopPlayers, TopPlayersResponseData{Players: players})
}
