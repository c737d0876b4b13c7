// Package storage defines the transactional persistence contract for rooms,
// seats and player balances.
package storage

import (
	"context"
	"errors"

	"github.com/lox/twentyone/internal/game"
)

var (
	// ErrNotFound is returned when a room, seat or player row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when inserting a duplicate key.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInsufficientFunds is returned by Debit when the balance is too low.
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Ledger debits and credits player balances.
type Ledger interface {
	// Debit removes amount from the player's balance, failing with
	// ErrInsufficientFunds rather than going negative.
	Debit(ctx context.Context, playerID, amount int64) error
	Credit(ctx context.Context, playerID, amount int64) error
	Balance(ctx context.Context, playerID int64) (int64, error)
	IncrementWins(ctx context.Context, playerID int64) error
}

// Tx is one unit of work. Everything done through a Tx commits or rolls back
// together.
type Tx interface {
	Ledger

	CountOpenRooms(ctx context.Context) (int, error)
	RoomExists(ctx context.Context, code string) (bool, error)
	GetRoom(ctx context.Context, code string) (game.Room, error)
	InsertRoom(ctx context.Context, room game.Room) error
	UpdateRoom(ctx context.Context, room game.Room) error
	// DeleteRoom removes the room and all of its seats.
	DeleteRoom(ctx context.Context, code string) error

	// ListSeats returns a room's seats in join order, dealer included.
	ListSeats(ctx context.Context, code string) ([]game.Seat, error)
	InsertSeat(ctx context.Context, seat game.Seat) error
	UpdateSeat(ctx context.Context, seat game.Seat) error
	DeleteSeat(ctx context.Context, code string, playerID int64) error
}

// RoomSummary is one line of the open-room listing.
type RoomSummary struct {
	Code     string `json:"code"`
	HostID   int64  `json:"hostId"`
	Seats    int    `json:"seats"`
	MaxSeats int    `json:"maxSeats"`
	Stake    int64  `json:"stake"`
}

// Player is a ledger row.
type Player struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance"`
	GameWins int    `json:"gameWins"`
}

// Store is the transactional store backing the room service.
type Store interface {
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(Tx) error) error

	// ListOpenRooms returns waiting rooms ordered by creation time.
	ListOpenRooms(ctx context.Context) ([]RoomSummary, error)
	// EnsurePlayer creates the player row if missing and refreshes its name.
	EnsurePlayer(ctx context.Context, playerID int64, name string) error
	GetPlayer(ctx context.Context, playerID int64) (Player, error)
	// Grant adds amount to a player's balance, creating the row if needed.
	Grant(ctx context.Context, playerID, amount int64) (int64, error)
	// TopPlayers returns players with at least one win, most wins first.
	TopPlayers(ctx context.Context, limit int) ([]Player, error)

	Close() error
}
