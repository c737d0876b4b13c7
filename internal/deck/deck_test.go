package deck

import (
	"testing"

	"github.com/lox/twentyone/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHasEveryCardOnce(t *testing.T) {
	d := New(randutil.New(42))
	require.Equal(t, Size, d.CardsRemaining())

	seen := make(map[Card]int)
	for _, c := range d.Cards() {
		seen[c]++
	}
	assert.Len(t, seen, Size)
	for _, c := range Standard() {
		assert.Equal(t, 1, seen[c], "card %s", c)
	}
}

func TestNewDecksAreIndependentlyOrdered(t *testing.T) {
	rng := randutil.New(7)
	first := New(rng).Cards()
	second := New(rng).Cards()

	assert.NotEqual(t, first, second)
	assert.ElementsMatch(t, first, second)
}

func TestDealUntilEmpty(t *testing.T) {
	d := FromCards(MustParseCards("A♠,2♥,3♦"))

	c, ok := d.Deal()
	require.True(t, ok)
	assert.Equal(t, "A♠", c.String())

	rest := d.DealN(5)
	assert.Len(t, rest, 2)
	assert.True(t, d.IsEmpty())

	_, ok = d.Deal()
	assert.False(t, ok)
}

func TestFromCardsCopies(t *testing.T) {
	src := MustParseCards("A♠,2♥")
	d := FromCards(src)
	d.Deal()

	assert.Equal(t, "A♠", src[0].String())
	assert.Equal(t, 1, d.CardsRemaining())
}
