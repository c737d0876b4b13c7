package room

import (
	"context"
	"fmt"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/storage"
)

// forcedDealerWin draws from [1, K] and reports whether it came up 1.
func (s *Service) forcedDealerWin() bool {
	odds := s.cfg.DealerForcedWinOdds
	if odds <= 0 {
		return false
	}
	return s.rng.IntN(odds)+1 == 1
}

// settle plays the dealer, pays every seat and deletes the room, all inside
// the caller's transaction. Results are queued for delivery after commit.
func (s *Service) settle(ctx context.Context, tx storage.Tx, r *round, fx *effects) error {
	if r.dealer.PlayerID != game.DealerID || r.dealer.RoomCode == "" {
		return fmt.Errorf("room %s has no dealer seat", r.room.Code)
	}

	forced := s.forcedDealerWin()
	dealerHand := game.PlayDealer(r.dealer.Hand, r.deck)

	st := game.Settle(s.cfg.Commission, dealerHand, forced, r.players)
	st.RoomCode = r.room.Code
	st.HandID = r.room.HandID

	for _, res := range st.Results {
		if res.Payout > 0 {
			if err := tx.Credit(ctx, res.PlayerID, res.Payout); err != nil {
				return err
			}
		}
		if res.Won() {
			if err := tx.IncrementWins(ctx, res.PlayerID); err != nil {
				return err
			}
		}
	}
	if err := tx.DeleteRoom(ctx, r.room.Code); err != nil {
		return err
	}

	s.logger.Info("Hand settled",
		"room", st.RoomCode,
		"hand", st.HandID,
		"dealer", deck.Display(st.DealerHand),
		"dealer_value", st.DealerValue,
		"forced_win", st.ForcedWin,
		"commission", st.Commission,
	)

	for i := range st.Results {
		res := st.Results[i]
		n := r.note(KindResult, resultText(st, res))
		n.DealerHand = st.DealerHand
		n.DealerValue = st.DealerValue
		n.ForcedWin = st.ForcedWin
		n.Result = &res
		fx.notify(res.PlayerID, n)
	}

	fx.done = true
	fx.settlement = &st
	return nil
}

func resultText(st game.Settlement, res game.SeatResult) string {
	dealer := fmt.Sprintf("Dealer: %s (%d).", deck.Display(st.DealerHand), st.DealerValue)
	if st.ForcedWin {
		dealer += " The dealer wins this hand outright."
	}
	var outcome string
	switch res.Outcome {
	case game.OutcomeWin:
		outcome = fmt.Sprintf("You win %d with %d.", res.Payout, res.Value)
	case game.OutcomePush:
		outcome = fmt.Sprintf("Push on %d, stake of %d returned.", res.Value, res.Payout)
	case game.OutcomeBust:
		outcome = fmt.Sprintf("Bust with %d.", res.Value)
	case game.OutcomeForfeit:
		outcome = "Stake forfeited."
	default:
		outcome = fmt.Sprintf("You lose with %d.", res.Value)
	}
	return dealer + " " + outcome
}
