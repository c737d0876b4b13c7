package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twentyone.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.ServerAddress())
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "twentyone.db", cfg.Server.DBPath)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, 20, rules.MaxRooms)
	assert.Equal(t, int64(3), rules.MinBet)
	assert.Equal(t, int64(1), rules.Commission)
	assert.Equal(t, 3, rules.DealerForcedWinOdds)
	assert.Zero(t, rules.TurnTimeout)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9090
  log_level = "debug"
  db_path   = "/var/lib/twentyone.db"
}

game {
  max_rooms              = 5
  min_bet                = 10
  commission             = 0
  dealer_forced_win_odds = 0
  turn_timeout           = "45s"
  seed                   = 42
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9090", cfg.ServerAddress())
	assert.Equal(t, "/var/lib/twentyone.db", cfg.Server.DBPath)
	assert.Equal(t, int64(42), cfg.Game.Seed)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, 5, rules.MaxRooms)
	assert.Equal(t, int64(10), rules.MinBet)
	assert.Equal(t, int64(0), rules.Commission, "explicit zero is kept")
	assert.Equal(t, 0, rules.DealerForcedWinOdds, "explicit zero disables the draw")
	assert.Equal(t, 45*time.Second, rules.TurnTimeout)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
game {
  min_bet = 5
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(5), cfg.Game.MinBet)
	assert.Equal(t, 20, cfg.Game.MaxRooms)
	require.NotNil(t, cfg.Game.Commission)
	assert.Equal(t, int64(1), *cfg.Game.Commission)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, `server {`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `server { port = "eighty" }`))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(map[string]string{
		"TWENTYONE_ADDR":      ":7000",
		"TWENTYONE_DB_PATH":   ":memory:",
		"TWENTYONE_LOG_LEVEL": "warn",
	})
	require.NoError(t, err)

	assert.Equal(t, "localhost:7000", cfg.ServerAddress())
	assert.Equal(t, ":memory:", cfg.Server.DBPath)
	assert.Equal(t, "warn", cfg.Server.LogLevel)

	assert.Error(t, Default().ApplyEnv(map[string]string{"TWENTYONE_ADDR": "no-port"}))
	assert.Error(t, Default().ApplyEnv(map[string]string{"TWENTYONE_ADDR": "host:http"}))
}

func TestSetAddr(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetAddr("0.0.0.0:9090"))
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 9090, cfg.Server.Port)

	assert.Error(t, cfg.SetAddr("9090"))
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "port out of range", modify: func(c *Config) { c.Server.Port = 70000 }},
		{name: "unknown log level", modify: func(c *Config) { c.Server.LogLevel = "chatty" }},
		{name: "bad timeout", modify: func(c *Config) { c.Game.TurnTimeout = "soon" }},
		{name: "negative timeout", modify: func(c *Config) { c.Game.TurnTimeout = "-1s" }},
		{name: "commission above min bet", modify: func(c *Config) {
			commission := int64(5)
			c.Game.Commission = &commission
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
