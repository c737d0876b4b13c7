package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lox/twentyone/internal/config"
	"github.com/lox/twentyone/internal/randutil"
	"github.com/lox/twentyone/internal/room"
	"github.com/lox/twentyone/internal/server"
	"github.com/lox/twentyone/internal/storage/sqlite"
	"golang.org/x/sync/errgroup"
)

// ServerCmd runs the WebSocket server
type ServerCmd struct {
	Config   string `short:"c" default:"twentyone.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	DB       string `help:"SQLite database path (overrides config)"`
	Seed     *int64 `help:"Deterministic RNG seed (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Server.LogLevel)

	store, err := sqlite.Open(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	wsServer := server.NewServer(cfg.ServerAddress(), logger)
	rooms, err := room.NewService(store, wsServer, randutil.NewSource(cfg.Game.Seed), nil, logger, rules)
	if err != nil {
		return err
	}
	defer rooms.Stop()
	wsServer.SetRoomService(rooms)

	logger.Info("Starting twentyone server",
		"addr", cfg.ServerAddress(),
		"db", cfg.Server.DBPath,
		"maxRooms", rules.MaxRooms,
		"minBet", rules.MinBet,
		"commission", rules.Commission,
		"forcedWinOdds", rules.DealerForcedWinOdds,
		"turnTimeout", rules.TurnTimeout)

	ctx, cancel := signalContext(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := wsServer.Start(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return wsServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (c *ServerCmd) applyOverrides(cfg *config.Config) error {
	if c.Addr != "" {
		if err := cfg.SetAddr(c.Addr); err != nil {
			return fmt.Errorf("--addr: %w", err)
		}
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.DB != "" {
		cfg.Server.DBPath = c.DB
	}
	if c.Seed != nil {
		cfg.Game.Seed = *c.Seed
	}
	return nil
}
