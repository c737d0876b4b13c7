package deck

// Size is the number of cards in a standard deck
const Size = 52

// Shuffler is the slice of a random source a deck needs.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Deck represents an ordered stack of playing cards. Cards are dealt from the
// front.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck shuffled with rng. Every call builds a
// fresh deck, so two decks never share an ordering by construction.
func New(rng Shuffler) *Deck {
	d := &Deck{cards: Standard()}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// FromCards wraps an existing ordered card list, e.g. one loaded from storage.
func FromCards(cards []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// Standard returns the 52 cards in suit-major, rank-minor order.
func Standard() []Card {
	cards := make([]Card, 0, Size)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DealN deals up to n cards; fewer are returned when the deck runs out.
func (d *Deck) DealN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}

	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		card, _ := d.Deal()
		cards = append(cards, card)
	}
	return cards
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Cards returns a copy of the remaining cards in deal order.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}
