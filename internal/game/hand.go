package game

import "github.com/lox/twentyone/internal/deck"

// Blackjack is the best hand value; anything above it is a bust.
const Blackjack = 21

// CardValue returns the hard value of a single card, counting aces as 11.
func CardValue(c deck.Card) int {
	switch {
	case c.IsAce():
		return 11
	case c.IsFaceCard():
		return 10
	default:
		return int(c.Rank)
	}
}

// HandValue returns the highest total not above 21 obtainable by counting
// each ace as 1 or 11, or the minimum total when every option busts.
func HandValue(cards []deck.Card) int {
	total, soft := 0, 0
	for _, c := range cards {
		total += CardValue(c)
		if c.IsAce() {
			soft++
		}
	}
	for total > Blackjack && soft > 0 {
		total -= 10
		soft--
	}
	return total
}

// IsBust reports whether the hand is over 21.
func IsBust(cards []deck.Card) bool {
	return HandValue(cards) > Blackjack
}
