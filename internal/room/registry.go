package room

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/storage"
)

// CreateRoom opens a waiting room and seats the host, escrowing the host's
// stake in the same transaction.
func (s *Service) CreateRoom(ctx context.Context, host Player, maxSeats int, stake int64) (storage.RoomSummary, error) {
	if err := validatePlayer(host.ID); err != nil {
		return storage.RoomSummary{}, err
	}
	if maxSeats < game.MinSeats || maxSeats > game.MaxSeats {
		return storage.RoomSummary{}, fmt.Errorf("seats must be between %d and %d, got %d: %w",
			game.MinSeats, game.MaxSeats, maxSeats, game.ErrValidation)
	}
	if stake < s.cfg.MinBet {
		return storage.RoomSummary{}, fmt.Errorf("minimum bet is %d, got %d: %w", s.cfg.MinBet, stake, game.ErrValidation)
	}
	// A win pays twice the stake.
	if stake > math.MaxInt64/2 {
		return storage.RoomSummary{}, fmt.Errorf("stake %d is too large: %w", stake, game.ErrValidation)
	}
	if err := s.store.EnsurePlayer(ctx, host.ID, host.displayName()); err != nil {
		return storage.RoomSummary{}, s.storeError("", err)
	}

	// Serializes the open-room count and code uniqueness check.
	s.createMu.Lock()
	defer s.createMu.Unlock()

	var room game.Room
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		open, err := tx.CountOpenRooms(ctx)
		if err != nil {
			return err
		}
		if open >= s.cfg.MaxRooms {
			return fmt.Errorf("%d rooms already open: %w", open, game.ErrCapacity)
		}

		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}

		room = game.Room{
			Code:      code,
			HostID:    host.ID,
			MaxSeats:  maxSeats,
			Stake:     stake,
			Status:    game.StatusWaiting,
			CreatedAt: s.clock.Now(),
		}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		return s.takeSeat(ctx, tx, room, host)
	})
	if err != nil {
		return storage.RoomSummary{}, s.storeError("", err)
	}

	s.logger.Info("Room created", "room", room.Code, "host", host.ID, "seats", maxSeats, "stake", stake)
	return storage.RoomSummary{
		Code:     room.Code,
		HostID:   room.HostID,
		Seats:    1,
		MaxSeats: room.MaxSeats,
		Stake:    room.Stake,
	}, nil
}

func (s *Service) uniqueCode(ctx context.Context, tx storage.Tx) (string, error) {
	for range s.cfg.CodeAttempts {
		code := s.codes.Generate()
		exists, err := tx.RoomExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		s.logger.Debug("Room code collision", "room", code)
	}
	return "", fmt.Errorf("no free room code after %d attempts: %w", s.cfg.CodeAttempts, game.ErrCapacity)
}

// takeSeat debits the stake and inserts the seat. Both happen in the caller's
// transaction.
func (s *Service) takeSeat(ctx context.Context, tx storage.Tx, room game.Room, player Player) error {
	if err := tx.Debit(ctx, player.ID, room.Stake); err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return fmt.Errorf("stake %d: %w", room.Stake, game.ErrInsufficientFunds)
		}
		return err
	}
	err := tx.InsertSeat(ctx, game.Seat{
		RoomCode: room.Code,
		PlayerID: player.ID,
		Name:     player.displayName(),
		State:    game.SeatActive,
		Stake:    room.Stake,
		JoinedAt: s.clock.Now(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return fmt.Errorf("player %d already seated in %s: %w", player.ID, room.Code, game.ErrValidation)
	}
	return err
}

// ListOpenRooms returns waiting rooms, oldest first.
func (s *Service) ListOpenRooms(ctx context.Context) ([]storage.RoomSummary, error) {
	rooms, err := s.store.ListOpenRooms(ctx)
	if err != nil {
		return nil, s.storeError("", err)
	}
	return rooms, nil
}
