package room

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/twentyone/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "no rooms", modify: func(c *Config) { c.MaxRooms = 0 }, wantErr: true},
		{name: "zero min bet", modify: func(c *Config) { c.MinBet = 0 }, wantErr: true},
		{name: "commission eats the stake", modify: func(c *Config) { c.Commission = 3 }, wantErr: true},
		{name: "negative odds", modify: func(c *Config) { c.DealerForcedWinOdds = -1 }, wantErr: true},
		{name: "negative timeout", modify: func(c *Config) { c.TurnTimeout = -time.Second }, wantErr: true},
		{name: "no code attempts", modify: func(c *Config) { c.CodeAttempts = 0 }, wantErr: true},
		{name: "timeout enabled", modify: func(c *Config) { c.TurnTimeout = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, log.NewWithOptions(io.Discard, log.Options{}), Config{})
	assert.Error(t, err)
}

func TestGrantAndBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig(), nil)

	assert.Equal(t, int64(0), h.balance(t, 1), "unknown players have nothing")

	balance, err := h.svc.Grant(ctx, player(1), 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	_, err = h.svc.Grant(ctx, player(1), 0)
	assert.ErrorIs(t, err, game.ErrValidation)
	_, err = h.svc.Grant(ctx, Player{ID: game.DealerID}, 10)
	assert.ErrorIs(t, err, game.ErrValidation)
}

func TestNotificationFailuresDoNotRollBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig(), nil)
	h.svc.notifier = NotifierFunc(func(context.Context, int64, Notification) error {
		return errors.New("offline")
	})

	code := h.table(t, 10, 1, 2)
	require.NoError(t, h.svc.Start(ctx, code, 1))

	rooms, err := h.svc.ListOpenRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms, "the room is playing despite undelivered prompts")
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig(), nil)
	require.NoError(t, h.store.Close())

	_, err := h.svc.ListOpenRooms(ctx)
	assert.ErrorIs(t, err, game.ErrStore)

	_, err = h.svc.Leave(ctx, "ABCDEF", 1)
	assert.ErrorIs(t, err, game.ErrStore)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  = map[string]int{}
		maxSeen = map[string]int{}
	)
	for i := range 20 {
		key := []string{"A", "B"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()

			mu.Lock()
			inside[key]++
			maxSeen[key] = max(maxSeen[key], inside[key])
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside[key]--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen["A"])
	assert.Equal(t, 1, maxSeen["B"])
	assert.Zero(t, km.size())
}
