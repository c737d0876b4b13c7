// Package room runs "21" rooms: the open-room registry, seat lifecycle, turn
// coordination and dealer settlement. Every mutation happens under a per-room
// lock inside one store transaction, and notifications are delivered only
// after that transaction commits.
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/randutil"
	"github.com/lox/twentyone/internal/roomcode"
	"github.com/lox/twentyone/internal/storage"
)

// Config holds the table rules.
type Config struct {
	// MaxRooms caps the number of waiting or playing rooms.
	MaxRooms int
	// MinBet is the smallest stake a room may be created with.
	MinBet int64
	// Commission is retained from every winning payout.
	Commission int64
	// DealerForcedWinOdds is K in the 1-in-K forced dealer win draw. Zero
	// disables it.
	DealerForcedWinOdds int
	// TurnTimeout applies stand to an unanswered prompt. Zero disables it.
	TurnTimeout time.Duration
	// CodeAttempts bounds room code generation retries.
	CodeAttempts int
}

// DefaultConfig returns the standard table rules.
func DefaultConfig() Config {
	return Config{
		MaxRooms:            20,
		MinBet:              3,
		Commission:          1,
		DealerForcedWinOdds: 3,
		CodeAttempts:        10,
	}
}

// Validate reports rule combinations the service cannot run with.
func (c Config) Validate() error {
	if c.MaxRooms < 1 {
		return fmt.Errorf("max rooms must be positive, got %d", c.MaxRooms)
	}
	if c.MinBet < 1 {
		return fmt.Errorf("min bet must be positive, got %d", c.MinBet)
	}
	if c.Commission < 0 || c.Commission >= c.MinBet {
		return fmt.Errorf("commission must be in [0, min bet), got %d", c.Commission)
	}
	if c.DealerForcedWinOdds < 0 {
		return fmt.Errorf("dealer forced win odds must not be negative, got %d", c.DealerForcedWinOdds)
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("turn timeout must not be negative, got %s", c.TurnTimeout)
	}
	if c.CodeAttempts < 1 {
		return fmt.Errorf("code attempts must be positive, got %d", c.CodeAttempts)
	}
	return nil
}

// RandomSource supplies the uniform draws the service needs. It must be safe
// for concurrent use.
type RandomSource interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Player identifies the caller of an operation.
type Player struct {
	ID   int64
	Name string
}

func (p Player) displayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return fmt.Sprintf("player-%d", p.ID)
}

func validatePlayer(id int64) error {
	if id <= game.DealerID {
		return fmt.Errorf("player id %d: %w", id, game.ErrValidation)
	}
	return nil
}

// Service exposes the room operations.
type Service struct {
	store    storage.Store
	notifier Notifier
	rng      RandomSource
	codes    *roomcode.Generator
	clock    quartz.Clock
	logger   *log.Logger
	cfg      Config

	locks    *keyedMutex
	createMu sync.Mutex
	timers   *turnTimers
}

// NewService wires a Service. A nil rng seeds one from the clock and a nil
// clock uses the real clock.
func NewService(store storage.Store, notifier Notifier, rng RandomSource, clock quartz.Clock, logger *log.Logger, cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = randutil.NewSource(0)
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		rng:      rng,
		codes:    roomcode.NewGenerator(rng),
		clock:    clock,
		logger:   logger.WithPrefix("room"),
		cfg:      cfg,
		locks:    newKeyedMutex(),
		timers:   newTurnTimers(),
	}, nil
}

// Config returns the rules the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// Stop cancels pending turn timers.
func (s *Service) Stop() {
	s.timers.stopAll()
}

// effects collects what a committed mutation must do afterwards.
type effects struct {
	notes []outgoing
	// prompt arms the turn timer for the seat that was just prompted.
	prompt *pendingTurn
	// settled or closed rooms drop their timer.
	done       bool
	settlement *game.Settlement
}

func (e *effects) notify(playerID int64, n Notification) {
	e.notes = append(e.notes, outgoing{playerID: playerID, n: n})
}

// mutate runs fn in a transaction while holding the room lock, then applies
// the queued effects once the transaction has committed.
func (s *Service) mutate(ctx context.Context, code string, fn func(tx storage.Tx, fx *effects) error) error {
	unlock := s.locks.Lock(code)
	defer unlock()

	fx := &effects{}
	if err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return fn(tx, fx)
	}); err != nil {
		return s.storeError(code, err)
	}

	if fx.done {
		s.timers.cancel(code)
	}
	if fx.prompt != nil {
		s.armTurnTimer(*fx.prompt)
	}
	s.deliver(ctx, fx.notes)
	return nil
}

func (s *Service) deliver(ctx context.Context, notes []outgoing) {
	for _, o := range notes {
		if err := s.notifier.Notify(ctx, o.playerID, o.n); err != nil {
			s.logger.Warn("Failed to deliver notification", "player", o.playerID, "room", o.n.RoomCode, "kind", o.n.Kind, "error", err)
		}
	}
}

var domainErrors = []error{
	game.ErrValidation,
	game.ErrNotFound,
	game.ErrCapacity,
	game.ErrInsufficientFunds,
	game.ErrOutOfTurn,
	game.ErrStore,
}

// storeError passes domain errors through and wraps anything else as a store
// failure.
func (s *Service) storeError(code string, err error) error {
	for _, kind := range domainErrors {
		if errors.Is(err, kind) {
			return err
		}
	}
	s.logger.Error("Store failure", "room", code, "error", err)
	return fmt.Errorf("%w: %w", game.ErrStore, err)
}

// loadRoom fetches a room, mapping a missing row to ErrNotFound.
func loadRoom(ctx context.Context, tx storage.Tx, code string) (game.Room, error) {
	room, err := tx.GetRoom(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return game.Room{}, fmt.Errorf("room %s: %w", code, game.ErrNotFound)
	}
	return room, err
}

func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := roomcode.Validate(code); err != nil {
		return "", fmt.Errorf("%w: %w", game.ErrValidation, err)
	}
	return code, nil
}

// Balance returns a player's balance. Unknown players have a zero balance.
func (s *Service) Balance(ctx context.Context, playerID int64) (int64, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, s.storeError("", err)
	}
	return player.Balance, nil
}

// TopPlayers returns the leaderboard by game wins.
func (s *Service) TopPlayers(ctx context.Context, limit int) ([]storage.Player, error) {
	players, err := s.store.TopPlayers(ctx, limit)
	if err != nil {
		return nil, s.storeError("", err)
	}
	return players, nil
}

// Grant funds a player. It is an operator action with no room involved.
func (s *Service) Grant(ctx context.Context, player Player, amount int64) (int64, error) {
	if err := validatePlayer(player.ID); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount %d: %w", amount, game.ErrValidation)
	}
	if err := s.store.EnsurePlayer(ctx, player.ID, player.displayName()); err != nil {
		return 0, s.storeError("", err)
	}
	balance, err := s.store.Grant(ctx, player.ID, amount)
	if err != nil {
		return 0, s.storeError("", err)
	}
	s.logger.Info("Granted balance", "player", player.ID, "amount", amount, "balance", balance)
	return balance, nil
}
