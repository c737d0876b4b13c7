package game

import (
	"testing"

	"github.com/lox/twentyone/internal/deck"
	"github.com/stretchr/testify/assert"
)

func TestHandValue(t *testing.T) {
	tests := []struct {
		name  string
		cards string
		want  int
	}{
		{name: "two aces and nine", cards: "A♠,A♥,9♦", want: 21},
		{name: "ace king", cards: "A♠,K♥", want: 21},
		{name: "bust", cards: "10♠,10♥,5♦", want: 25},
		{name: "empty", cards: "", want: 0},
		{name: "single ace", cards: "A♣", want: 11},
		{name: "pair of aces", cards: "A♣,A♦", want: 12},
		{name: "four aces", cards: "A♠,A♥,A♦,A♣", want: 14},
		{name: "soft seventeen", cards: "A♠,6♥", want: 17},
		{name: "soft hand hardens", cards: "A♠,6♥,10♦", want: 17},
		{name: "faces count ten", cards: "J♠,Q♥", want: 20},
		{name: "ace cannot save hard bust", cards: "K♠,Q♥,A♦,A♣", want: 22},
		{name: "numerics", cards: "2♠,3♥,4♦,5♣", want: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HandValue(deck.MustParseCards(tt.cards)))
		})
	}
}

func TestIsBust(t *testing.T) {
	assert.True(t, IsBust(deck.MustParseCards("10♠,10♥,5♦")))
	assert.False(t, IsBust(deck.MustParseCards("10♠,A♥,K♦")))
}

func TestHandValueIsMaximalUnderTwentyOne(t *testing.T) {
	// Exhaustively compare against every assignment of 1 or 11 to each ace.
	for _, cards := range []string{"A♠,5♥", "A♠,A♥,5♦", "A♠,A♥,A♦,8♣", "A♠,9♥,A♦", "K♠,A♥"} {
		hand := deck.MustParseCards(cards)
		best := -1
		aces, base := 0, 0
		for _, c := range hand {
			if c.IsAce() {
				aces++
			} else {
				base += CardValue(c)
			}
		}
		for mask := 0; mask < 1<<aces; mask++ {
			total := base
			for i := 0; i < aces; i++ {
				if mask&(1<<i) != 0 {
					total += 11
				} else {
					total++
				}
			}
			if total <= Blackjack && total > best {
				best = total
			}
		}
		assert.Equal(t, best, HandValue(hand), cards)
	}
}
