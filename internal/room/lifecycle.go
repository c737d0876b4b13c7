package room

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/storage"
	"github.com/thoas/go-funk"
)

// LeaveResult describes what leaving a room did to the player's stake and to
// the room.
type LeaveResult struct {
	// Refunded is credited back when leaving a waiting room.
	Refunded int64
	// Forfeited is kept when leaving mid-hand.
	Forfeited   int64
	NewHostID   int64
	RoomDeleted bool
	// Settlement is set when the departure finished the hand.
	Settlement *game.Settlement
}

func seatIDs(seats []game.Seat) []int64 {
	return funk.Map(seats, func(seat game.Seat) int64 {
		return seat.PlayerID
	}).([]int64)
}

func notifyAll(fx *effects, r *round, skip int64, text string) {
	for _, id := range seatIDs(r.players) {
		if id != skip {
			fx.notify(id, r.note(KindNotice, text))
		}
	}
}

// Join seats a player in a waiting room, escrowing the room's stake.
func (s *Service) Join(ctx context.Context, code string, player Player) (storage.RoomSummary, error) {
	if err := validatePlayer(player.ID); err != nil {
		return storage.RoomSummary{}, err
	}
	code, err := normalizeCode(code)
	if err != nil {
		return storage.RoomSummary{}, err
	}
	if err := s.store.EnsurePlayer(ctx, player.ID, player.displayName()); err != nil {
		return storage.RoomSummary{}, s.storeError(code, err)
	}

	var summary storage.RoomSummary
	err = s.mutate(ctx, code, func(tx storage.Tx, fx *effects) error {
		r, err := loadRound(ctx, tx, code)
		if err != nil {
			return err
		}
		if r.room.Status != game.StatusWaiting {
			return fmt.Errorf("room %s is not accepting players: %w", code, game.ErrNotFound)
		}
		if funk.Contains(seatIDs(r.players), player.ID) {
			return fmt.Errorf("player %d already seated in %s: %w", player.ID, code, game.ErrValidation)
		}
		if len(r.players) >= r.room.MaxSeats {
			return fmt.Errorf("room %s is full: %w", code, game.ErrCapacity)
		}
		if err := s.takeSeat(ctx, tx, r.room, player); err != nil {
			return err
		}

		seats := len(r.players) + 1
		notifyAll(fx, r, player.ID, fmt.Sprintf("%s joined room %s (%d/%d).", player.displayName(), code, seats, r.room.MaxSeats))
		summary = storage.RoomSummary{
			Code:     code,
			HostID:   r.room.HostID,
			Seats:    seats,
			MaxSeats: r.room.MaxSeats,
			Stake:    r.room.Stake,
		}
		return nil
	})
	if err != nil {
		return storage.RoomSummary{}, err
	}

	s.logger.Info("Player joined", "room", code, "player", player.ID, "seats", summary.Seats)
	return summary, nil
}

// Leave removes a player from a room. Leaving a waiting room refunds the
// stake; leaving mid-hand forfeits it and the turn moves on.
func (s *Service) Leave(ctx context.Context, code string, playerID int64) (LeaveResult, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return LeaveResult{}, err
	}

	var result LeaveResult
	err = s.mutate(ctx, code, func(tx storage.Tx, fx *effects) error {
		r, err := loadRound(ctx, tx, code)
		if err != nil {
			return err
		}
		idx := r.seatIndex(playerID)
		if idx < 0 || r.players[idx].State == game.SeatLeft {
			return fmt.Errorf("player %d is not seated in %s: %w", playerID, code, game.ErrNotFound)
		}
		seat := &r.players[idx]

		if r.room.Status == game.StatusWaiting {
			return s.leaveWaiting(ctx, tx, r, *seat, fx, &result)
		}

		seat.State = game.SeatLeft
		if err := tx.UpdateSeat(ctx, *seat); err != nil {
			return err
		}
		result.Forfeited = seat.Stake
		notifyAll(fx, r, playerID, fmt.Sprintf("%s left the hand and forfeits their stake.", seat.Name))

		if idx == r.room.Turn {
			if err := s.advance(ctx, tx, r, fx); err != nil {
				return err
			}
		}
		result.Settlement = fx.settlement
		result.RoomDeleted = fx.done
		return nil
	})
	if err != nil {
		return LeaveResult{}, err
	}

	s.logger.Info("Player left", "room", code, "player", playerID,
		"refunded", result.Refunded, "forfeited", result.Forfeited, "deleted", result.RoomDeleted)
	return result, nil
}

func (s *Service) leaveWaiting(ctx context.Context, tx storage.Tx, r *round, seat game.Seat, fx *effects, result *LeaveResult) error {
	if err := tx.Credit(ctx, seat.PlayerID, seat.Stake); err != nil {
		return err
	}
	if err := tx.DeleteSeat(ctx, r.room.Code, seat.PlayerID); err != nil {
		return err
	}
	result.Refunded = seat.Stake

	r.players = funk.Filter(r.players, func(other game.Seat) bool {
		return other.PlayerID != seat.PlayerID
	}).([]game.Seat)

	if len(r.players) == 0 {
		result.RoomDeleted = true
		fx.done = true
		return tx.DeleteRoom(ctx, r.room.Code)
	}

	notifyAll(fx, r, seat.PlayerID, fmt.Sprintf("%s left room %s (%d/%d).", seat.Name, r.room.Code, len(r.players), r.room.MaxSeats))
	if r.room.HostID != seat.PlayerID {
		return nil
	}

	// Earliest remaining seat inherits the room.
	r.room.HostID = r.players[0].PlayerID
	result.NewHostID = r.room.HostID
	fx.notify(r.room.HostID, r.note(KindNotice, fmt.Sprintf("You are now the host of room %s.", r.room.Code)))
	return tx.UpdateRoom(ctx, r.room)
}

// Start deals a hand in a waiting room. Only the host may start, and only with
// at least two seats taken.
func (s *Service) Start(ctx context.Context, code string, hostID int64) error {
	code, err := normalizeCode(code)
	if err != nil {
		return err
	}

	var handID string
	err = s.mutate(ctx, code, func(tx storage.Tx, fx *effects) error {
		r, err := loadRound(ctx, tx, code)
		if err != nil {
			return err
		}
		if r.room.Status != game.StatusWaiting {
			return fmt.Errorf("room %s is not waiting: %w", code, game.ErrNotFound)
		}
		if r.room.HostID != hostID {
			return fmt.Errorf("only the host can start room %s: %w", code, game.ErrValidation)
		}
		if len(r.players) < game.MinSeats {
			return fmt.Errorf("room %s needs at least %d players: %w", code, game.MinSeats, game.ErrValidation)
		}

		r.deck = deck.New(s.rng)
		r.room.Status = game.StatusPlaying
		r.room.HandID = uuid.NewString()
		r.room.Turn = 0
		r.room.TurnSeq = 0
		handID = r.room.HandID

		for i := range r.players {
			r.players[i].Hand = r.deck.DealN(2)
			r.players[i].State = game.SeatActive
			if err := tx.UpdateSeat(ctx, r.players[i]); err != nil {
				return err
			}
		}
		r.dealer = game.Seat{
			RoomCode: code,
			PlayerID: game.DealerID,
			Name:     game.DealerName,
			Hand:     r.deck.DealN(2),
			State:    game.SeatStood,
			JoinedAt: s.clock.Now(),
		}
		if err := tx.InsertSeat(ctx, r.dealer); err != nil {
			return err
		}

		if len(r.dealer.Hand) > 0 {
			notifyAll(fx, r, game.DealerID, fmt.Sprintf("The hand has started in room %s. Dealer shows %s.", code, r.dealer.Hand[0]))
		}
		return s.advance(ctx, tx, r, fx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Hand started", "room", code, "hand", handID)
	return nil
}

// Close refunds every seat of a waiting room and deletes it. Only the host
// may close.
func (s *Service) Close(ctx context.Context, code string, hostID int64) error {
	code, err := normalizeCode(code)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, code, func(tx storage.Tx, fx *effects) error {
		r, err := loadRound(ctx, tx, code)
		if err != nil {
			return err
		}
		if r.room.Status != game.StatusWaiting {
			return fmt.Errorf("room %s is not waiting: %w", code, game.ErrNotFound)
		}
		if r.room.HostID != hostID {
			return fmt.Errorf("only the host can close room %s: %w", code, game.ErrValidation)
		}

		for _, seat := range r.players {
			if err := tx.Credit(ctx, seat.PlayerID, seat.Stake); err != nil {
				return err
			}
		}
		if err := tx.DeleteRoom(ctx, code); err != nil {
			return err
		}
		fx.done = true
		for _, seat := range r.players {
			fx.notify(seat.PlayerID, r.note(KindNotice, fmt.Sprintf("Room %s was closed. Your stake of %d was refunded.", code, seat.Stake)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Room closed", "room", code, "host", hostID)
	return nil
}
