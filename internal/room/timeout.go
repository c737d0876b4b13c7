package room

import (
	"context"
	"errors"
	"sync"

	"github.com/coder/quartz"
	"github.com/lox/twentyone/internal/game"
)

// pendingTurn identifies one prompt: answering it requires the same seat and
// sequence number.
type pendingTurn struct {
	code     string
	playerID int64
	seq      int
}

// turnTimers keeps at most one armed timer per room.
type turnTimers struct {
	mu     sync.Mutex
	timers map[string]*quartz.Timer
}

func newTurnTimers() *turnTimers {
	return &turnTimers{timers: make(map[string]*quartz.Timer)}
}

func (t *turnTimers) set(code string, timer *quartz.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[code]; ok {
		old.Stop()
	}
	t.timers[code] = timer
}

func (t *turnTimers) cancel(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[code]; ok {
		timer.Stop()
		delete(t.timers, code)
	}
}

func (t *turnTimers) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for code, timer := range t.timers {
		timer.Stop()
		delete(t.timers, code)
	}
}

func (t *turnTimers) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// armTurnTimer schedules a stand for an unanswered prompt when turn timeouts
// are enabled.
func (s *Service) armTurnTimer(p pendingTurn) {
	if s.cfg.TurnTimeout <= 0 {
		return
	}
	timer := s.clock.AfterFunc(s.cfg.TurnTimeout, func() {
		s.expireTurn(p)
	}, "room", "turn")
	s.timers.set(p.code, timer)
}

func (s *Service) expireTurn(p pendingTurn) {
	_, err := s.act(context.Background(), p.code, p.playerID, game.Stand, p.seq, true)
	switch {
	case err == nil:
		s.logger.Info("Turn timed out", "room", p.code, "player", p.playerID, "seq", p.seq)
	case errors.Is(err, game.ErrOutOfTurn), errors.Is(err, game.ErrNotFound):
		// Answered or torn down before the timer fired.
	default:
		s.logger.Warn("Failed to apply turn timeout", "room", p.code, "player", p.playerID, "error", err)
	}
}
