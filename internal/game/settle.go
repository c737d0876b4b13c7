package game

import "github.com/lox/twentyone/internal/deck"

// DealerStandsOn is the value at which the dealer stops drawing.
const DealerStandsOn = 17

// PlayDealer draws for the dealer while its value is below DealerStandsOn and
// the deck still has cards. It returns the dealer's final hand.
func PlayDealer(hand []deck.Card, d *deck.Deck) []deck.Card {
	hand = append([]deck.Card(nil), hand...)
	for HandValue(hand) < DealerStandsOn {
		card, ok := d.Deal()
		if !ok {
			break
		}
		hand = append(hand, card)
	}
	return hand
}

// Outcome is how a seat finished the hand.
type Outcome string

const (
	OutcomeWin        Outcome = "win"
	OutcomeLose       Outcome = "lose"
	OutcomeBust       Outcome = "bust"
	OutcomeForcedLoss Outcome = "dealer_forced_win"
	OutcomePush       Outcome = "push"
	OutcomeForfeit    Outcome = "forfeit"
)

// SeatResult is the settlement of one seat.
type SeatResult struct {
	PlayerID int64       `json:"playerId"`
	Name     string      `json:"name"`
	Hand     []deck.Card `json:"hand"`
	Value    int         `json:"value"`
	Outcome  Outcome     `json:"outcome"`
	// Payout is credited at settlement; escrowed stakes of losing seats are
	// simply kept.
	Payout int64 `json:"payout"`
	// Delta is the change to the player's balance relative to before they
	// joined the room.
	Delta int64 `json:"delta"`
}

// Settlement is the result of resolving a finished hand.
type Settlement struct {
	RoomCode     string       `json:"roomCode"`
	HandID       string       `json:"handId"`
	DealerHand   []deck.Card  `json:"dealerHand"`
	DealerValue  int          `json:"dealerValue"`
	DealerBusted bool         `json:"dealerBusted"`
	ForcedWin    bool         `json:"forcedWin"`
	Results      []SeatResult `json:"results"`
	// Commission is the total retained from winning payouts.
	Commission int64 `json:"commission"`
}

// Settle resolves every non-dealer seat against the dealer's final hand.
// forcedWin marks the hand as a forced dealer win and commission is the fixed
// deduction from each winning payout.
func Settle(commission int64, dealerHand []deck.Card, forcedWin bool, seats []Seat) Settlement {
	dealerValue := HandValue(dealerHand)
	s := Settlement{
		DealerHand:   dealerHand,
		DealerValue:  dealerValue,
		DealerBusted: dealerValue > Blackjack,
		ForcedWin:    forcedWin,
	}

	for _, seat := range Players(seats) {
		value := seat.Value()
		result := SeatResult{
			PlayerID: seat.PlayerID,
			Name:     seat.Name,
			Hand:     seat.Hand,
			Value:    value,
		}

		switch {
		case seat.State.Forfeited():
			result.Outcome = OutcomeForfeit
		case value > Blackjack:
			result.Outcome = OutcomeBust
		case forcedWin:
			result.Outcome = OutcomeForcedLoss
		case s.DealerBusted, value > dealerValue:
			result.Outcome = OutcomeWin
		case value < dealerValue:
			result.Outcome = OutcomeLose
		default:
			result.Outcome = OutcomePush
		}

		switch result.Outcome {
		case OutcomeWin:
			result.Payout = 2*seat.Stake - commission
			result.Delta = seat.Stake - commission
			s.Commission += commission
		case OutcomePush:
			result.Payout = seat.Stake
		default:
			result.Delta = -seat.Stake
		}

		s.Results = append(s.Results, result)
	}
	return s
}

// Won reports whether the seat won the hand.
func (r SeatResult) Won() bool {
	return r.Outcome == OutcomeWin
}
