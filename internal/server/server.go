package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/room"
	"github.com/lox/twentyone/internal/storage"
)

// ErrPlayerNotConnected is returned when a notification has no live
// connection to go to.
var ErrPlayerNotConnected = errors.New("player not connected")

// RoomService is the subset of room.Service the transport drives.
type RoomService interface {
	ListOpenRooms(ctx context.Context) ([]storage.RoomSummary, error)
	CreateRoom(ctx context.Context, host room.Player, maxSeats int, stake int64) (storage.RoomSummary, error)
	Join(ctx context.Context, code string, player room.Player) (storage.RoomSummary, error)
	Leave(ctx context.Context, code string, playerID int64) (room.LeaveResult, error)
	Start(ctx context.Context, code string, hostID int64) error
	Close(ctx context.Context, code string, hostID int64) error
	Act(ctx context.Context, code string, playerID int64, action game.Action, seq int) (*game.Settlement, error)
	Balance(ctx context.Context, playerID int64) (int64, error)
	TopPlayers(ctx context.Context, limit int) ([]storage.Player, error)
}

// Server represents the WebSocket server
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	runOnce     sync.Once
	rooms       RoomService
	httpServer  *http.Server
}

var _ room.Notifier = (*Server)(nil)

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRoomService sets the room service for the server. The service is built
// with the server as its notifier, so it is attached after construction.
func (s *Server) SetRoomService(rooms RoomService) {
	s.rooms = rooms
}

// Handler returns the HTTP handler serving /ws and /health.
func (s *Server) Handler() http.Handler {
	s.runOnce.Do(func() { go s.run() })

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start starts the WebSocket server and blocks until it is shut down
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Handler()}
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes the open ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down WebSocket server", "players", len(s.ConnectedPlayers()))
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			// Seats survive disconnects; the player resumes by
			// authenticating with the same id.
			s.logger.Info("Client disconnected", "player", conn.GetPlayer(), "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.rooms)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = client.Close()
		return
	}
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// SendToPlayer sends a message to every connection authenticated as playerID
func (s *Server) SendToPlayer(playerID int64, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for conn := range s.connections {
		if conn.GetPlayer() != playerID {
			continue
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error("Failed to send message to client", "error", err, "player", playerID)
			continue
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("player %d: %w", playerID, ErrPlayerNotConnected)
	}
	return nil
}

// Notify delivers a room notification to the player's connections.
func (s *Server) Notify(_ context.Context, playerID int64, n room.Notification) error {
	msg, err := MessageFromNotification(n)
	if err != nil {
		return err
	}
	return s.SendToPlayer(playerID, msg)
}

// ConnectedPlayers returns the ids of authenticated connections
func (s *Server) ConnectedPlayers() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []int64
	for conn := range s.connections {
		if id := conn.GetPlayer(); id != 0 {
			players = append(players, id)
		}
	}
	return players
}
