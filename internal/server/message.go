package server

import (
	"encoding/json"
	"time"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/room"
	"github.com/lox/twentyone/internal/storage"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerID   int64  `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type CreateRoomData struct {
	MaxSeats int   `json:"maxSeats"`
	Stake    int64 `json:"stake"`
}

// RoomRequestData addresses join_room, leave_room, start_game and close_room.
type RoomRequestData struct {
	RoomCode string `json:"roomCode"`
}

type PlayerActionData struct {
	RoomCode string `json:"roomCode"`
	Action   string `json:"action"`
	Seq      int    `json:"seq"`
}

type TopPlayersData struct {
	Limit int `json:"limit,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID int64  `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomListData struct {
	Rooms []storage.RoomSummary `json:"rooms"`
}

type RoomLeftData struct {
	RoomCode    string `json:"roomCode"`
	Refunded    int64  `json:"refunded"`
	Forfeited   int64  `json:"forfeited"`
	NewHostID   int64  `json:"newHostId,omitempty"`
	RoomDeleted bool   `json:"roomDeleted"`
}

type NoticeData struct {
	RoomCode string `json:"roomCode,omitempty"`
	HandID   string `json:"handId,omitempty"`
	Text     string `json:"text"`
}

type TurnPromptData struct {
	RoomCode string        `json:"roomCode"`
	HandID   string        `json:"handId"`
	Text     string        `json:"text"`
	Hand     []deck.Card   `json:"hand"`
	Value    int           `json:"value"`
	Actions  []game.Action `json:"actions"`
	Seq      int           `json:"seq"`
}

type HandResultData struct {
	RoomCode    string          `json:"roomCode"`
	HandID      string          `json:"handId"`
	Text        string          `json:"text"`
	DealerHand  []deck.Card     `json:"dealerHand"`
	DealerValue int             `json:"dealerValue"`
	ForcedWin   bool            `json:"forcedWin"`
	Result      game.SeatResult `json:"result"`
}

type BalanceData struct {
	Balance int64 `json:"balance"`
}

type TopPlayersResponseData struct {
	Players []storage.Player `json:"players"`
}

// MessageFromNotification converts a room notification to its wire message.
func MessageFromNotification(n room.Notification) (*Message, error) {
	switch n.Kind {
	case room.KindTurn:
		return NewMessage(MessageTypeTurnPrompt, TurnPromptData{
			RoomCode: n.RoomCode,
			HandID:   n.HandID,
			Text:     n.Text,
			Hand:     n.Hand,
			Value:    n.Value,
			Actions:  n.Actions,
			Seq:      n.Seq,
		})
	case room.KindResult:
		data := HandResultData{
			RoomCode:    n.RoomCode,
			HandID:      n.HandID,
			Text:        n.Text,
			DealerHand:  n.DealerHand,
			DealerValue: n.DealerValue,
			ForcedWin:   n.ForcedWin,
		}
		if n.Result != nil {
			data.Result = *n.Result
		}
		return NewMessage(MessageTypeHandResult, data)
	default:
		return NewMessage(MessageTypeNotice, NoticeData{
			RoomCode: n.RoomCode,
			HandID:   n.HandID,
			Text:     n.Text,
		})
	}
}
