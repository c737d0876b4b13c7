package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCards(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:  "blackjack",
			input: "A♠,K♠",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Spades, Rank: King},
			},
		},
		{
			name:  "ten is two characters",
			input: "10♥,9♦,2♣",
			expected: []Card{
				{Suit: Hearts, Rank: Ten},
				{Suit: Diamonds, Rank: Nine},
				{Suit: Clubs, Rank: Two},
			},
		},
		{
			name:  "whitespace around tokens",
			input: " Q♦ , J♣",
			expected: []Card{
				{Suit: Diamonds, Rank: Queen},
				{Suit: Clubs, Rank: Jack},
			},
		},
		{
			name:    "invalid rank",
			input:   "X♠,K♠",
			wantErr: true,
		},
		{
			name:    "invalid suit",
			input:   "A♠,Ks",
			wantErr: true,
		},
		{
			name:    "single letter ten",
			input:   "T♠",
			wantErr: true,
		},
		{
			name:     "empty string",
			input:    "",
			expected: []Card{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatCardsRoundTripsStandardDeck(t *testing.T) {
	cards := Standard()
	encoded := FormatCards(cards)

	decoded, err := ParseCards(encoded)
	require.NoError(t, err)
	assert.Equal(t, cards, decoded)
	assert.Equal(t, "", FormatCards(nil))
}

func TestCardTokens(t *testing.T) {
	assert.Equal(t, "10♥", NewCard(Hearts, Ten).String())
	assert.Equal(t, "A♠", NewCard(Spades, Ace).String())
	assert.Equal(t, "2♣", NewCard(Clubs, Two).String())
	assert.Equal(t, "K♦", NewCard(Diamonds, King).String())
}

func TestCardJSON(t *testing.T) {
	hand := []Card{NewCard(Spades, Ace), NewCard(Hearts, Ten)}

	data, err := json.Marshal(hand)
	require.NoError(t, err)
	assert.JSONEq(t, `["A♠","10♥"]`, string(data))

	var decoded []Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, hand, decoded)
}

func TestMustParseCards(t *testing.T) {
	cards := MustParseCards("A♠,K♠")
	assert.Equal(t, []Card{{Suit: Spades, Rank: Ace}, {Suit: Spades, Rank: King}}, cards)

	assert.Panics(t, func() { MustParseCards("invalid") })
}
