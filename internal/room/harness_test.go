package room

import (
	"context"
	"io"
	"slices"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/randutil"
	"github.com/lox/twentyone/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

// stackedRandom draws uniformly but shuffles a deck so that top comes out
// first, in order, with the rest in standard order.
type stackedRandom struct {
	*randutil.Source
	top []deck.Card
}

func (r stackedRandom) Shuffle(n int, swap func(i, j int)) {
	cur := deck.Standard()
	for i, want := range r.top {
		j := slices.Index(cur, want)
		cur[i], cur[j] = cur[j], cur[i]
		swap(i, j)
	}
}

// fixedRandom always draws zero.
type fixedRandom struct{}

func (fixedRandom) IntN(int) int                { return 0 }
func (fixedRandom) Shuffle(int, func(i, j int)) {}

type sent struct {
	playerID int64
	n        Notification
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Notify(_ context.Context, playerID int64, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{playerID: playerID, n: n})
	return nil
}

func (r *recorder) of(playerID int64, kind Kind) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, s := range r.sent {
		if s.playerID == playerID && s.n.Kind == kind {
			out = append(out, s.n)
		}
	}
	return out
}

func (r *recorder) lastPrompt(t *testing.T, playerID int64) Notification {
	t.Helper()
	prompts := r.of(playerID, KindTurn)
	require.NotEmpty(t, prompts, "player %d was never prompted", playerID)
	return prompts[len(prompts)-1]
}

// promptOrder lists the players that received turn prompts, in order.
func (r *recorder) promptOrder() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, s := range r.sent {
		if s.n.Kind == KindTurn {
			ids = append(ids, s.playerID)
		}
	}
	return ids
}

type harness struct {
	svc   *Service
	store *sqlite.Store
	notes *recorder
	clock *quartz.Mock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DealerForcedWinOdds = 0
	return cfg
}

func newHarness(t *testing.T, cfg Config, rng RandomSource) *harness {
	t.Helper()
	store, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if rng == nil {
		rng = stackedRandom{Source: randutil.NewSource(1)}
	}
	notes := &recorder{}
	clock := quartz.NewMock(t)
	logger := log.NewWithOptions(io.Discard, log.Options{})

	svc, err := NewService(store, notes, rng, clock, logger, cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	return &harness{svc: svc, store: store, notes: notes, clock: clock}
}

// stacked builds a harness whose decks deal top first.
func stacked(t *testing.T, cfg Config, top string) *harness {
	t.Helper()
	return newHarness(t, cfg, stackedRandom{Source: randutil.NewSource(1), top: deck.MustParseCards(top)})
}

func (h *harness) fund(t *testing.T, id, amount int64) {
	t.Helper()
	_, err := h.svc.Grant(context.Background(), Player{ID: id, Name: playerName(id)}, amount)
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, id int64) int64 {
	t.Helper()
	b, err := h.svc.Balance(context.Background(), id)
	require.NoError(t, err)
	return b
}

func playerName(id int64) string {
	return []string{"", "alice", "bob", "carol", "dave", "erin", "frank"}[id]
}

func player(id int64) Player {
	return Player{ID: id, Name: playerName(id)}
}

// table funds every player with 100, has player 1 create a room with the
// given stake and seats the rest in order.
func (h *harness) table(t *testing.T, stake int64, ids ...int64) string {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		h.fund(t, id, 100)
	}
	summary, err := h.svc.CreateRoom(ctx, player(ids[0]), min(len(ids)+1, game.MaxSeats), stake)
	require.NoError(t, err)
	for _, id := range ids[1:] {
		_, err := h.svc.Join(ctx, summary.Code, player(id))
		require.NoError(t, err)
	}
	return summary.Code
}

// started seats ids at a stake of 10 and deals.
func (h *harness) started(t *testing.T, ids ...int64) string {
	t.Helper()
	code := h.table(t, 10, ids...)
	require.NoError(t, h.svc.Start(context.Background(), code, ids[0]))
	return code
}

// act answers the player's latest prompt.
func (h *harness) act(t *testing.T, code string, id int64, action string) error {
	t.Helper()
	a, err := game.ParseAction(action)
	require.NoError(t, err)
	_, err = h.svc.Act(context.Background(), code, id, a, h.notes.lastPrompt(t, id).Seq)
	return err
}
