package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lox/twentyone/internal/client"
	"github.com/lox/twentyone/internal/server"
	"github.com/lox/twentyone/internal/storage"
)

// ClientCmd connects to a server as an interactive player
type ClientCmd struct {
	Config   string `short:"c" default:"twentyone-client.hcl" help:"Path to HCL configuration file"`
	Server   string `short:"s" help:"Server URL to connect to (overrides config)"`
	Player   int64  `short:"p" help:"Player id (overrides config)"`
	Name     string `short:"n" help:"Display name (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	LogFile  string `help:"Log file path (overrides config)"`
}

const clientHelp = `Commands:
  list                     rooms waiting for players
  create [seats] [stake]   open a room and take the first seat
  join CODE                take a seat
  leave                    give up your seat
  start                    deal a hand (host only)
  close                    close a waiting room (host only)
  hit | stand | surrender  answer the current prompt
  balance                  show your balance
  top [n]                  show the leaderboard
  quit`

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.Player != 0 {
		cfg.Player.ID = c.Player
	}
	if c.Name != "" {
		cfg.Player.Name = c.Name
	}
	if c.LogLevel != "" {
		cfg.UI.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.UI.LogFile = c.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	logger := newLogger(logFile, cfg.UI.LogLevel)

	wsClient := client.NewClient(cfg.Server.URL, logger)
	p := &prompter{client: wsClient}
	p.register()

	if err := wsClient.Connect(); err != nil {
		return err
	}
	defer func() { _ = wsClient.Disconnect() }()

	timeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
	if err := wsClient.Authenticate(cfg.Player.ID, cfg.Player.Name, timeout); err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf(" twentyone: player %d ", cfg.Player.ID)))
	fmt.Println(infoStyle.Render(clientHelp))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !wsClient.IsConnected() {
			return fmt.Errorf("connection to server lost")
		}
		quit, err := p.run(strings.Fields(scanner.Text()), cfg)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// prompter renders server events and tracks the prompt being answered.
type prompter struct {
	client *client.Client

	mu  sync.Mutex
	seq int
}

func (p *prompter) run(args []string, cfg *client.ClientConfig) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}
	code := p.client.GetRoomCode()

	switch strings.ToLower(args[0]) {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Println(infoStyle.Render(clientHelp))
		return false, nil
	case "list":
		return false, p.client.ListRooms()
	case "create":
		seats, stake := cfg.Player.DefaultSeats, cfg.Player.DefaultStake
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return false, fmt.Errorf("seats must be a number")
			}
			seats = n
		}
		if len(args) > 2 {
			n, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return false, fmt.Errorf("stake must be a number")
			}
			stake = n
		}
		return false, p.client.CreateRoom(seats, stake)
	case "join":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: join CODE")
		}
		return false, p.client.JoinRoom(strings.ToUpper(args[1]))
	case "balance":
		return false, p.client.Balance()
	case "top":
		limit := 0
		if len(args) > 1 {
			limit, _ = strconv.Atoi(args[1])
		}
		return false, p.client.TopPlayers(limit)
	}

	if code == "" {
		return false, fmt.Errorf("not in a room, use create or join")
	}

	switch strings.ToLower(args[0]) {
	case "leave":
		return false, p.client.LeaveRoom(code)
	case "start":
		return false, p.client.StartGame(code)
	case "close":
		return false, p.client.CloseRoom(code)
	case "hit", "stand", "surrender":
		p.mu.Lock()
		seq := p.seq
		p.mu.Unlock()
		return false, p.client.Act(code, strings.ToLower(args[0]), seq)
	default:
		return false, fmt.Errorf("unknown command %q, try help", args[0])
	}
}

func decode[T any](msg *server.Message) (T, bool) {
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		fmt.Println(errorStyle.Render("malformed " + msg.Type.String() + " message"))
		return v, false
	}
	return v, true
}

func (p *prompter) register() {
	c := p.client

	c.AddEventHandler(server.MessageTypeRoomList, func(msg *server.Message) {
		data, ok := decode[server.RoomListData](msg)
		if !ok {
			return
		}
		if len(data.Rooms) == 0 {
			fmt.Println(infoStyle.Render("No rooms are waiting for players"))
			return
		}
		for _, r := range data.Rooms {
			fmt.Printf("  %s  %d/%d seats  stake %d\n", r.Code, r.Seats, r.MaxSeats, r.Stake)
		}
	})

	seated := func(verb string) client.EventHandler {
		return func(msg *server.Message) {
			data, ok := decode[storage.RoomSummary](msg)
			if !ok {
				return
			}
			c.SetRoomCode(data.Code)
			fmt.Println(successStyle.Render(fmt.Sprintf("%s room %s (%d/%d seats, stake %d)", verb, data.Code, data.Seats, data.MaxSeats, data.Stake)))
		}
	}
	c.AddEventHandler(server.MessageTypeRoomCreated, seated("Created"))
	c.AddEventHandler(server.MessageTypeRoomJoined, seated("Joined"))

	c.AddEventHandler(server.MessageTypeRoomLeft, func(msg *server.Message) {
		data, ok := decode[server.RoomLeftData](msg)
		if !ok {
			return
		}
		c.SetRoomCode("")
		switch {
		case data.Refunded > 0:
			fmt.Println(successStyle.Render(fmt.Sprintf("Left %s, %d refunded", data.RoomCode, data.Refunded)))
		case data.Forfeited > 0:
			fmt.Println(errorStyle.Render(fmt.Sprintf("Left %s, %d forfeited", data.RoomCode, data.Forfeited)))
		default:
			fmt.Printf("Left %s\n", data.RoomCode)
		}
	})

	c.AddEventHandler(server.MessageTypeNotice, func(msg *server.Message) {
		if data, ok := decode[server.NoticeData](msg); ok {
			fmt.Println(infoStyle.Render(data.Text))
		}
	})

	c.AddEventHandler(server.MessageTypeTurnPrompt, func(msg *server.Message) {
		data, ok := decode[server.TurnPromptData](msg)
		if !ok {
			return
		}
		p.mu.Lock()
		p.seq = data.Seq
		p.mu.Unlock()
		c.SetRoomCode(data.RoomCode)

		actions := make([]string, len(data.Actions))
		for i, a := range data.Actions {
			actions[i] = a.String()
		}
		fmt.Println(data.Text)
		fmt.Printf("%s (%d)  %s\n", renderCards(data.Hand), data.Value, actionsStyle.Render(strings.Join(actions, " | ")))
	})

	c.AddEventHandler(server.MessageTypeHandResult, func(msg *server.Message) {
		data, ok := decode[server.HandResultData](msg)
		if !ok {
			return
		}
		c.SetRoomCode("")
		fmt.Printf("Dealer: %s (%d)\n", renderCards(data.DealerHand), data.DealerValue)
		style := errorStyle
		if data.Result.Won() {
			style = successStyle
		}
		fmt.Println(style.Render(data.Text))
	})

	c.AddEventHandler(server.MessageTypeBalance, func(msg *server.Message) {
		if data, ok := decode[server.BalanceData](msg); ok {
			fmt.Printf("Balance: %d\n", data.Balance)
		}
	})

	c.AddEventHandler(server.MessageTypeTopPlayers, func(msg *server.Message) {
		if data, ok := decode[server.TopPlayersResponseData](msg); ok {
			printTop(os.Stdout, data.Players)
		}
	})

	c.AddEventHandler(server.MessageTypeError, func(msg *server.Message) {
		if data, ok := decode[server.ErrorData](msg); ok {
			fmt.Println(errorStyle.Render(fmt.Sprintf("%s: %s", data.Code, data.Message)))
		}
	})
}
