package room

import (
	"context"
	"fmt"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/storage"
)

// round is the in-transaction view of a room: its row, the join-ordered
// player seats, the dealer seat once dealt, and the undealt cards.
type round struct {
	room    game.Room
	players []game.Seat
	dealer  game.Seat
	deck    *deck.Deck
}

func loadRound(ctx context.Context, tx storage.Tx, code string) (*round, error) {
	room, err := loadRoom(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	seats, err := tx.ListSeats(ctx, code)
	if err != nil {
		return nil, err
	}
	r := &round{
		room:    room,
		players: game.Players(seats),
		deck:    deck.FromCards(room.Deck),
	}
	r.dealer, _ = game.FindDealer(seats)
	return r, nil
}

// seatIndex returns the index of the player's seat, or -1.
func (r *round) seatIndex(playerID int64) int {
	for i, seat := range r.players {
		if seat.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// current returns the seat holding the turn, if any.
func (r *round) current() (*game.Seat, bool) {
	if r.room.Status != game.StatusPlaying || r.room.Turn < 0 || r.room.Turn >= len(r.players) {
		return nil, false
	}
	return &r.players[r.room.Turn], true
}

func (r *round) note(kind Kind, text string) Notification {
	return Notification{
		Kind:     kind,
		RoomCode: r.room.Code,
		HandID:   r.room.HandID,
		Text:     text,
	}
}

// Act applies a turn action for the seat holding the turn. seq must echo the
// sequence number of the prompt being answered; anything else is rejected
// with ErrOutOfTurn and changes nothing. It returns the settlement when the
// action finished the hand.
func (s *Service) Act(ctx context.Context, code string, playerID int64, action game.Action, seq int) (*game.Settlement, error) {
	return s.act(ctx, code, playerID, action, seq, false)
}

func (s *Service) act(ctx context.Context, code string, playerID int64, action game.Action, seq int, timedOut bool) (*game.Settlement, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %d: %w", int(action), game.ErrValidation)
	}

	var settlement *game.Settlement
	err = s.mutate(ctx, code, func(tx storage.Tx, fx *effects) error {
		r, err := loadRound(ctx, tx, code)
		if err != nil {
			return err
		}
		seat, ok := r.current()
		if !ok {
			return fmt.Errorf("room %s has no hand in progress: %w", code, game.ErrOutOfTurn)
		}
		if seat.PlayerID != playerID {
			return fmt.Errorf("room %s is waiting on another seat: %w", code, game.ErrOutOfTurn)
		}
		if seq != r.room.TurnSeq {
			return fmt.Errorf("prompt %d was superseded by %d: %w", seq, r.room.TurnSeq, game.ErrOutOfTurn)
		}

		s.logger.Debug("Turn action", "room", code, "hand", r.room.HandID, "player", playerID, "action", action, "timed_out", timedOut)
		if timedOut {
			fx.notify(playerID, r.note(KindNotice, fmt.Sprintf("Time is up, you stand on %d.", seat.Value())))
		}

		if err := s.apply(ctx, tx, r, seat, action, fx); err != nil {
			return err
		}
		settlement = fx.settlement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *Service) apply(ctx context.Context, tx storage.Tx, r *round, seat *game.Seat, action game.Action, fx *effects) error {
	switch action {
	case game.Hit:
		card, ok := r.deck.Deal()
		if !ok {
			seat.State = game.SeatStood
			fx.notify(seat.PlayerID, r.note(KindNotice, fmt.Sprintf("The deck is empty, you stand on %d.", seat.Value())))
			break
		}
		seat.Hand = append(seat.Hand, card)
		if game.IsBust(seat.Hand) {
			seat.State = game.SeatBusted
			fx.notify(seat.PlayerID, r.note(KindNotice, fmt.Sprintf("You drew %s and bust with %d.", card, seat.Value())))
			break
		}
		if err := tx.UpdateSeat(ctx, *seat); err != nil {
			return err
		}
		return s.prompt(ctx, tx, r, fx, fmt.Sprintf("You drew %s. ", card))

	case game.Stand:
		seat.State = game.SeatStood

	case game.Surrender:
		seat.State = game.SeatSurrendered
		fx.notify(seat.PlayerID, r.note(KindNotice, fmt.Sprintf("You surrendered. Your stake of %d is forfeited.", seat.Stake)))
	}

	if err := tx.UpdateSeat(ctx, *seat); err != nil {
		return err
	}
	return s.advance(ctx, tx, r, fx)
}

// advance moves the turn to the next active seat in join order, or hands the
// round to the dealer when none is left.
func (s *Service) advance(ctx context.Context, tx storage.Tx, r *round, fx *effects) error {
	r.room.Turn = game.NextActive(r.players, r.room.Turn)
	if r.room.Turn >= len(r.players) {
		return s.settle(ctx, tx, r, fx)
	}
	return s.prompt(ctx, tx, r, fx, "")
}

// prompt persists the room with a fresh sequence number and asks the seat at
// the turn pointer to act.
func (s *Service) prompt(ctx context.Context, tx storage.Tx, r *round, fx *effects, lead string) error {
	r.room.TurnSeq++
	r.room.Deck = r.deck.Cards()
	if err := tx.UpdateRoom(ctx, r.room); err != nil {
		return err
	}

	seat := r.players[r.room.Turn]
	n := r.note(KindTurn, fmt.Sprintf("%sYour turn in room %s. Hand: %s (%d).", lead, r.room.Code, deck.Display(seat.Hand), seat.Value()))
	n.Actions = append([]game.Action(nil), game.TurnActions...)
	n.Hand = seat.Hand
	n.Value = seat.Value()
	n.Seq = r.room.TurnSeq
	fx.notify(seat.PlayerID, n)
	fx.prompt = &pendingTurn{code: r.room.Code, playerID: seat.PlayerID, seq: r.room.TurnSeq}
	return nil
}
