package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/storage"
)

type tx struct {
	tx *sql.Tx
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) Debit(ctx context.Context, playerID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("debit amount must be non-negative")
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE players SET balance = balance - ? WHERE player_id = ? AND balance >= ?`,
		amount, playerID, amount,
	)
	if err != nil {
		return fmt.Errorf("debit player %d: %w", playerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit player %d: %w", playerID, err)
	}
	if n == 0 {
		return storage.ErrInsufficientFunds
	}
	return nil
}

func (t *tx) Credit(ctx context.Context, playerID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("credit amount must be non-negative")
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO players (player_id, balance) VALUES (?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET balance = balance + excluded.balance`,
		playerID, amount,
	)
	if err != nil {
		return fmt.Errorf("credit player %d: %w", playerID, err)
	}
	return nil
}

// Balance returns zero for players that have never been credited.
func (t *tx) Balance(ctx context.Context, playerID int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT balance FROM players WHERE player_id = ?`, playerID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance of player %d: %w", playerID, err)
	}
	return balance, nil
}

func (t *tx) IncrementWins(ctx context.Context, playerID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO players (player_id, game_wins) VALUES (?, 1)
		 ON CONFLICT(player_id) DO UPDATE SET game_wins = game_wins + 1`,
		playerID,
	)
	if err != nil {
		return fmt.Errorf("increment wins of player %d: %w", playerID, err)
	}
	return nil
}

func (t *tx) CountOpenRooms(ctx context.Context) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooms WHERE status IN ('waiting', 'playing')`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open rooms: %w", err)
	}
	return n, nil
}

func (t *tx) RoomExists(ctx context.Context, code string) (bool, error) {
	var exists int
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE code = ?)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("room exists %s: %w", code, err)
	}
	return exists == 1, nil
}

func (t *tx) GetRoom(ctx context.Context, code string) (game.Room, error) {
	var (
		room      game.Room
		status    string
		cards     string
		createdAt int64
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT code, host_id, max_seats, stake, status, deck, turn, turn_seq, hand_id, created_at
		   FROM rooms WHERE code = ?`,
		code,
	).Scan(&room.Code, &room.HostID, &room.MaxSeats, &room.Stake, &status, &cards,
		&room.Turn, &room.TurnSeq, &room.HandID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Room{}, storage.ErrNotFound
		}
		return game.Room{}, fmt.Errorf("get room %s: %w", code, err)
	}

	room.Status = game.Status(status)
	room.CreatedAt = fromMillis(createdAt)
	if room.Deck, err = deck.ParseCards(cards); err != nil {
		return game.Room{}, fmt.Errorf("decode deck of room %s: %w", code, err)
	}
	return room, nil
}

func (t *tx) InsertRoom(ctx context.Context, room game.Room) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO rooms (code, host_id, max_seats, stake, status, deck, turn, turn_seq, hand_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.Code, room.HostID, room.MaxSeats, room.Stake, string(room.Status),
		deck.FormatCards(room.Deck), room.Turn, room.TurnSeq, room.HandID, toMillis(room.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert room %s: %w", room.Code, err)
	}
	return nil
}

func (t *tx) UpdateRoom(ctx context.Context, room game.Room) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE rooms
		    SET host_id = ?, status = ?, deck = ?, turn = ?, turn_seq = ?, hand_id = ?
		  WHERE code = ?`,
		room.HostID, string(room.Status), deck.FormatCards(room.Deck), room.Turn, room.TurnSeq, room.HandID, room.Code,
	)
	if err != nil {
		return fmt.Errorf("update room %s: %w", room.Code, err)
	}
	return requireOneRow(res)
}

func (t *tx) DeleteRoom(ctx context.Context, code string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM seats WHERE room_code = ?`, code); err != nil {
		return fmt.Errorf("delete seats of room %s: %w", code, err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return requireOneRow(res)
}

func (t *tx) ListSeats(ctx context.Context, code string) ([]game.Seat, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT room_code, player_id, name, cards, state, stake, joined_at
		   FROM seats
		  WHERE room_code = ?
		  ORDER BY joined_at, rowid`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("list seats of room %s: %w", code, err)
	}
	defer rows.Close()

	var seats []game.Seat
	for rows.Next() {
		var (
			seat     game.Seat
			cards    string
			state    string
			joinedAt int64
		)
		if err := rows.Scan(&seat.RoomCode, &seat.PlayerID, &seat.Name, &cards, &state, &seat.Stake, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		if seat.Hand, err = deck.ParseCards(cards); err != nil {
			return nil, fmt.Errorf("decode hand of player %d: %w", seat.PlayerID, err)
		}
		seat.State = game.SeatState(state)
		seat.JoinedAt = fromMillis(joinedAt)
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list seats of room %s: %w", code, err)
	}
	return seats, nil
}

func (t *tx) InsertSeat(ctx context.Context, seat game.Seat) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO seats (room_code, player_id, name, cards, value, state, stake, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seat.RoomCode, seat.PlayerID, seat.Name, deck.FormatCards(seat.Hand), seat.Value(),
		string(seat.State), seat.Stake, toMillis(seat.JoinedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert seat %s/%d: %w", seat.RoomCode, seat.PlayerID, err)
	}
	return nil
}

func (t *tx) UpdateSeat(ctx context.Context, seat game.Seat) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE seats SET cards = ?, value = ?, state = ?
		  WHERE room_code = ? AND player_id = ?`,
		deck.FormatCards(seat.Hand), seat.Value(), string(seat.State), seat.RoomCode, seat.PlayerID,
	)
	if err != nil {
		return fmt.Errorf("update seat %s/%d: %w", seat.RoomCode, seat.PlayerID, err)
	}
	return requireOneRow(res)
}

func (t *tx) DeleteSeat(ctx context.Context, code string, playerID int64) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM seats WHERE room_code = ? AND player_id = ?`, code, playerID,
	)
	if err != nil {
		return fmt.Errorf("delete seat %s/%d: %w", code, playerID, err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
