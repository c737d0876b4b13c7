// Package config loads the server configuration from an HCL file and
// environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/twentyone/internal/room"
)

// Config represents the complete server configuration
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Game   *GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	DBPath   string `hcl:"db_path,optional"`
}

// GameSettings holds the table rules. Pointer fields distinguish an explicit
// zero from an omitted attribute.
type GameSettings struct {
	MaxRooms            int    `hcl:"max_rooms,optional"`
	MinBet              int64  `hcl:"min_bet,optional"`
	Commission          *int64 `hcl:"commission,optional"`
	DealerForcedWinOdds *int   `hcl:"dealer_forced_win_odds,optional"`
	TurnTimeout         string `hcl:"turn_timeout,optional"`
	// Seed fixes the shuffle for reproducible games; 0 seeds from the clock.
	Seed int64 `hcl:"seed,optional"`
}

// Environment overrides, applied after the file.
type envOverrides struct {
	Addr     string `env:"TWENTYONE_ADDR"`
	DBPath   string `env:"TWENTYONE_DB_PATH"`
	LogLevel string `env:"TWENTYONE_LOG_LEVEL"`
}

// Default returns default server configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Game == nil {
		c.Game = &GameSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "twentyone.db"
	}

	rules := room.DefaultConfig()
	if c.Game.MaxRooms == 0 {
		c.Game.MaxRooms = rules.MaxRooms
	}
	if c.Game.MinBet == 0 {
		c.Game.MinBet = rules.MinBet
	}
	if c.Game.Commission == nil {
		c.Game.Commission = &rules.Commission
	}
	if c.Game.DealerForcedWinOdds == nil {
		c.Game.DealerForcedWinOdds = &rules.DealerForcedWinOdds
	}
}

// ApplyEnv overlays TWENTYONE_* variables. A nil environ reads the process
// environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	var overrides envOverrides
	if err := env.ParseWithOptions(&overrides, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if overrides.Addr != "" {
		if err := c.SetAddr(overrides.Addr); err != nil {
			return fmt.Errorf("TWENTYONE_ADDR: %w", err)
		}
	}
	if overrides.DBPath != "" {
		c.Server.DBPath = overrides.DBPath
	}
	if overrides.LogLevel != "" {
		c.Server.LogLevel = overrides.LogLevel
	}
	return nil
}

// SetAddr sets the listen host and port from a host:port pair.
func (c *Config) SetAddr(addr string) error {
	host, port, err := splitAddr(addr)
	if err != nil {
		return err
	}
	c.Server.Address = host
	c.Server.Port = port
	return nil
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	if host == "" {
		host = "localhost"
	}
	return host, port, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	rules, err := c.Rules()
	if err != nil {
		return err
	}
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	return nil
}

// Rules converts the game block into room service rules.
func (c *Config) Rules() (room.Config, error) {
	rules := room.DefaultConfig()
	rules.MaxRooms = c.Game.MaxRooms
	rules.MinBet = c.Game.MinBet
	if c.Game.Commission != nil {
		rules.Commission = *c.Game.Commission
	}
	if c.Game.DealerForcedWinOdds != nil {
		rules.DealerForcedWinOdds = *c.Game.DealerForcedWinOdds
	}
	if c.Game.TurnTimeout != "" {
		timeout, err := time.ParseDuration(c.Game.TurnTimeout)
		if err != nil {
			return room.Config{}, fmt.Errorf("game: invalid turn_timeout %q: %w", c.Game.TurnTimeout, err)
		}
		rules.TurnTimeout = timeout
	}
	return rules, nil
}

// ServerAddress returns the full listen address
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}
