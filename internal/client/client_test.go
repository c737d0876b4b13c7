package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/twentyone/internal/room"
	"github.com/lox/twentyone/internal/server"
	"github.com/lox/twentyone/internal/storage"
	"github.com/lox/twentyone/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (string, *room.Service) {
	t.Helper()

	logger := log.NewWithOptions(io.Discard, log.Options{})
	store, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)

	srv := server.NewServer("", logger)
	rooms, err := room.NewService(store, srv, nil, nil, logger, room.DefaultConfig())
	require.NoError(t, err)
	srv.SetRoomService(rooms)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
		rooms.Stop()
		_ = store.Close()
	})
	return ts.URL, rooms
}

// expect registers a one-shot capture before the request that triggers it.
func expect(c *Client, messageType server.MessageType) <-chan *server.Message {
	ch := make(chan *server.Message, 1)
	c.AddEventHandler(messageType, func(msg *server.Message) {
		select {
		case ch <- msg:
		default:
		}
	})
	return ch
}

func receive(t *testing.T, ch <-chan *server.Message) *server.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestClientCreatesAndListsRooms(t *testing.T) {
	url, rooms := startServer(t)
	_, err := rooms.Grant(context.Background(), room.Player{ID: 7, Name: "gina"}, 50)
	require.NoError(t, err)

	c := NewClient(url, log.NewWithOptions(io.Discard, log.Options{}))
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Disconnect() })
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Authenticate(7, "gina", 5*time.Second))
	assert.Equal(t, int64(7), c.GetPlayerID())

	created := expect(c, server.MessageTypeRoomCreated)
	require.NoError(t, c.CreateRoom(3, 5))
	msg := receive(t, created)
	assert.NotEmpty(t, msg.RequestID)
	var summary storage.RoomSummary
	require.NoError(t, json.Unmarshal(msg.Data, &summary))
	assert.Equal(t, int64(5), summary.Stake)

	listed := expect(c, server.MessageTypeRoomList)
	require.NoError(t, c.ListRooms())
	var list server.RoomListData
	require.NoError(t, json.Unmarshal(receive(t, listed).Data, &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, summary.Code, list.Rooms[0].Code)

	balance := expect(c, server.MessageTypeBalance)
	require.NoError(t, c.Balance())
	var data server.BalanceData
	require.NoError(t, json.Unmarshal(receive(t, balance).Data, &data))
	assert.Equal(t, int64(45), data.Balance)
}

func TestRemoveEventHandler(t *testing.T) {
	c := NewClient("http://localhost:0", log.NewWithOptions(io.Discard, log.Options{}))

	calls := 0
	remove := c.AddEventHandler(server.MessageTypeNotice, func(*server.Message) { calls++ })
	c.handleMessage(&server.Message{Type: server.MessageTypeNotice})
	remove()
	c.handleMessage(&server.Message{Type: server.MessageTypeNotice})

	assert.Equal(t, 1, calls)
}

func TestAuthenticateRejected(t *testing.T) {
	url, _ := startServer(t)

	c := NewClient(url, log.NewWithOptions(io.Discard, log.Options{}))
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Disconnect() })

	err := c.Authenticate(0, "nobody", 5*time.Second)
	assert.ErrorContains(t, err, "authentication failed: player id must be positive")
}

func TestExpect(t *testing.T) {
	c := NewClient("http://localhost:0", log.NewWithOptions(io.Discard, log.Options{}))

	wait := c.Expect(server.MessageTypeNotice)
	c.handleMessage(&server.Message{Type: server.MessageTypeNotice, RequestID: "n1"})
	msg, err := wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "n1", msg.RequestID)

	_, err = c.Expect(server.MessageTypeNotice)(10 * time.Millisecond)
	assert.ErrorContains(t, err, "timeout waiting for notice")

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.Empty(t, c.eventHandlers[server.MessageTypeNotice], "handlers are removed once waited on")
}

func TestLoadClientConfig(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.hcl"))
		require.NoError(t, err)
		assert.Equal(t, DefaultClientConfig(), cfg)
		assert.ErrorContains(t, cfg.Validate(), "player id")
	})

	t.Run("file overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "client.hcl")
		require.NoError(t, os.WriteFile(path, []byte(`
server {
  url = "http://tables.example:9000"
}

player {
  id            = 12
  name          = "hank"
  default_stake = 25
}

ui {
  log_level = "debug"
}
`), 0o600))

		cfg, err := LoadClientConfig(path)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://tables.example:9000", cfg.Server.URL)
		assert.Equal(t, int64(12), cfg.Player.ID)
		assert.Equal(t, int64(25), cfg.Player.DefaultStake)
		assert.Equal(t, 4, cfg.Player.DefaultSeats)
		assert.Equal(t, "debug", cfg.UI.LogLevel)
		assert.Equal(t, "twentyone-client.log", cfg.UI.LogFile)
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := DefaultClientConfig()
		cfg.Player.ID = 1
		cfg.UI.LogLevel = "loud"
		assert.ErrorContains(t, cfg.Validate(), "invalid log level")
	})
}
