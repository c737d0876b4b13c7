package room

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
)

// Kind identifies what a Notification carries.
type Kind string

const (
	// KindNotice is free text about the room (joins, leaves, refunds).
	KindNotice Kind = "notice"
	// KindTurn prompts a seat to act.
	KindTurn Kind = "turn"
	// KindResult reports the settlement of a seat.
	KindResult Kind = "result"
)

// Notification is a private message for one player.
type Notification struct {
	Kind     Kind
	RoomCode string
	HandID   string
	Text     string

	// Turn prompts carry the hand, its value, the allowed actions and the
	// sequence number the answer must echo.
	Actions []game.Action
	Hand    []deck.Card
	Value   int
	Seq     int

	// Results carry the dealer's final hand and the seat's own outcome.
	DealerHand  []deck.Card
	DealerValue int
	ForcedWin   bool
	Result      *game.SeatResult
}

// Notifier delivers private notifications. Delivery failures are logged by
// the service and never roll back game state.
type Notifier interface {
	Notify(ctx context.Context, playerID int64, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, playerID int64, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, playerID int64, n Notification) error {
	return f(ctx, playerID, n)
}

// LogNotifier writes notifications to a logger. It is used by CLI commands
// that drive the service without connected clients.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify logs n.
func (l LogNotifier) Notify(_ context.Context, playerID int64, n Notification) error {
	l.Logger.Info(n.Text, "player", playerID, "kind", n.Kind, "room", n.RoomCode)
	return nil
}

// outgoing is a notification queued inside a transaction and delivered only
// after it commits.
type outgoing struct {
	playerID int64
	n        Notification
}
