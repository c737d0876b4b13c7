package room

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lox/twentyone/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeoutConfig() Config {
	cfg := testConfig()
	cfg.TurnTimeout = 30 * time.Second
	return cfg
}

func TestTurnTimeoutStandsForIdleSeat(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, timeoutConfig(), nil)
	code := h.started(t, 1, 2)
	staleSeq := h.notes.lastPrompt(t, 1).Seq

	h.clock.Advance(30 * time.Second).MustWait(ctx)

	assert.Equal(t, []int64{1, 2}, h.notes.promptOrder())
	notices := h.notes.of(1, KindNotice)
	require.NotEmpty(t, notices)
	assert.Contains(t, notices[len(notices)-1].Text, "Time is up")

	_, err := h.svc.Act(ctx, code, 1, game.Hit, staleSeq)
	assert.ErrorIs(t, err, game.ErrOutOfTurn)

	require.NoError(t, h.act(t, code, 2, "stand"))
	require.Len(t, h.notes.of(1, KindResult), 1)
	assert.Zero(t, h.svc.timers.len(), "settled rooms drop their timer")
}

func TestAnsweredPromptIsNotTimedOut(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, timeoutConfig(), nil)
	code := h.started(t, 1, 2)

	h.clock.Advance(10 * time.Second).MustWait(ctx)
	require.NoError(t, h.act(t, code, 1, "stand"))

	// The second seat's timer started when it was prompted.
	h.clock.Advance(20 * time.Second).MustWait(ctx)
	assert.Empty(t, h.notes.of(2, KindResult))

	h.clock.Advance(10 * time.Second).MustWait(ctx)
	require.Len(t, h.notes.of(2, KindResult), 1)

	for _, n := range h.notes.of(1, KindNotice) {
		assert.False(t, strings.Contains(n.Text, "Time is up"), "seat 1 answered in time")
	}
}

func TestTurnTimeoutDisabledByDefault(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.started(t, 1, 2)

	assert.Zero(t, h.svc.timers.len())
}
