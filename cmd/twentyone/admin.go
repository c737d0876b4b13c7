package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lox/twentyone/internal/room"
	"github.com/lox/twentyone/internal/storage"
	"github.com/lox/twentyone/internal/storage/sqlite"
)

// StoreFlags locate the database for commands that work on it directly.
type StoreFlags struct {
	DB string `default:"twentyone.db" env:"TWENTYONE_DB_PATH" help:"SQLite database path"`
}

func (f StoreFlags) open() (*sqlite.Store, *room.Service, error) {
	logger := newLogger(os.Stderr, "warn")
	store, err := sqlite.Open(f.DB)
	if err != nil {
		return nil, nil, err
	}
	svc, err := room.NewService(store, room.LogNotifier{Logger: logger}, nil, nil, logger, room.DefaultConfig())
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, svc, nil
}

// GrantCmd credits a player's balance
type GrantCmd struct {
	StoreFlags `embed:""`
	Player int64  `arg:"" help:"Player id"`
	Amount int64  `arg:"" help:"Amount to credit"`
	Name   string `help:"Display name to record for the player"`
}

func (c *GrantCmd) Run() error {
	store, svc, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	balance, err := svc.Grant(context.Background(), room.Player{ID: c.Player, Name: c.Name}, c.Amount)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Player %d balance: %d", c.Player, balance)))
	return nil
}

// BalanceCmd shows a player's balance
type BalanceCmd struct {
	StoreFlags `embed:""`
	Player int64 `arg:"" help:"Player id"`
}

func (c *BalanceCmd) Run() error {
	store, svc, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	balance, err := svc.Balance(context.Background(), c.Player)
	if err != nil {
		return err
	}
	fmt.Printf("Player %d balance: %d\n", c.Player, balance)
	return nil
}

// TopCmd prints the leaderboard
type TopCmd struct {
	StoreFlags `embed:""`
	Limit int `short:"n" default:"10" help:"Number of players to show"`
}

func (c *TopCmd) Run() error {
	store, svc, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	players, err := svc.TopPlayers(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	printTop(os.Stdout, players)
	return nil
}

// RoomsCmd lists waiting rooms
type RoomsCmd struct {
	StoreFlags `embed:""`
}

func (c *RoomsCmd) Run() error {
	store, svc, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rooms, err := svc.ListOpenRooms(context.Background())
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println(infoStyle.Render("No rooms are waiting for players"))
		return nil
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf(" %-8s %-6s %-6s %s ", "CODE", "SEATS", "STAKE", "HOST")))
	for _, r := range rooms {
		fmt.Printf(" %-8s %d/%-4d %-6d %d\n", r.Code, r.Seats, r.MaxSeats, r.Stake, r.HostID)
	}
	return nil
}

func printTop(w io.Writer, players []storage.Player) {
	if len(players) == 0 {
		_, _ = fmt.Fprintln(w, infoStyle.Render("No hands have been won yet"))
		return
	}
	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf(" %-4s %-20s %-6s ", "#", "PLAYER", "WINS")))
	for i, p := range players {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("player-%d", p.ID)
		}
		_, _ = fmt.Fprintf(w, " %-4d %-20s %-6d\n", i+1, name, p.GameWins)
	}
}
