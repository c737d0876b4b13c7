// Package sqlite provides a SQLite-backed room and ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/twentyone/internal/storage"
	"github.com/lox/twentyone/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database. SQLite gives every
// connection to ":memory:" its own database, so Open pins the pool to one
// connection that is never closed for idleness or age. Each Open of
// MemoryPath is a separate database; cache=shared is not used.
const MemoryPath = ":memory:"

// Store persists rooms, seats and balances in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations. The
// store holds a single connection: transactions are serialized, and an
// in-memory database is shared by every caller.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	var dsn string
	if path == MemoryPath {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		dsn = "file:" + filepath.Clean(path) +
			"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(storage.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListOpenRooms returns waiting rooms with their occupancy, oldest first.
func (s *Store) ListOpenRooms(ctx context.Context) ([]storage.RoomSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT r.code, r.host_id, r.max_seats, r.stake,
		        (SELECT COUNT(*) FROM seats s WHERE s.room_code = r.code) AS seat_count
		   FROM rooms r
		  WHERE r.status = 'waiting'
		  ORDER BY r.created_at, r.rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list open rooms: %w", err)
	}
	defer rows.Close()

	var rooms []storage.RoomSummary
	for rows.Next() {
		var r storage.RoomSummary
		if err := rows.Scan(&r.Code, &r.HostID, &r.MaxSeats, &r.Stake, &r.Seats); err != nil {
			return nil, fmt.Errorf("scan open room: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list open rooms: %w", err)
	}
	return rooms, nil
}

// EnsurePlayer creates the player row if it does not exist and records the
// latest display name.
func (s *Store) EnsurePlayer(ctx context.Context, playerID int64, name string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (player_id, name) VALUES (?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET name = excluded.name`,
		playerID, strings.TrimSpace(name),
	)
	if err != nil {
		return fmt.Errorf("ensure player %d: %w", playerID, err)
	}
	return nil
}

// GetPlayer returns one ledger row.
func (s *Store) GetPlayer(ctx context.Context, playerID int64) (storage.Player, error) {
	var p storage.Player
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT player_id, name, balance, game_wins FROM players WHERE player_id = ?`,
		playerID,
	).Scan(&p.ID, &p.Name, &p.Balance, &p.GameWins)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Player{}, storage.ErrNotFound
		}
		return storage.Player{}, fmt.Errorf("get player %d: %w", playerID, err)
	}
	return p, nil
}

// Grant credits amount to a player and returns the new balance.
func (s *Store) Grant(ctx context.Context, playerID, amount int64) (int64, error) {
	var balance int64
	err := s.WithTx(ctx, func(t storage.Tx) error {
		if err := t.Credit(ctx, playerID, amount); err != nil {
			return err
		}
		var err error
		balance, err = t.Balance(ctx, playerID)
		return err
	})
	return balance, err
}

// TopPlayers returns players ranked by game wins.
func (s *Store) TopPlayers(ctx context.Context, limit int) ([]storage.Player, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player_id, name, balance, game_wins
		   FROM players
		  WHERE game_wins > 0
		  ORDER BY game_wins DESC, player_id
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}
	defer rows.Close()

	var players []storage.Player
	for rows.Next() {
		var p storage.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Balance, &p.GameWins); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
