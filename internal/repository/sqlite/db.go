// Package sqlite provides a single-file game store for local play, the CLI and
// bot arena runs. It implements the same repository interfaces as postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/freeeve/tribes/internal/model"
)

// DB wraps a SQLite connection for game persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		turn INTEGER NOT NULL,
		current_tribe TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		finished_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS game_seats (
		game_id TEXT NOT NULL,
		tribe TEXT NOT NULL,
		controller TEXT NOT NULL,
		strategy TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (game_id, tribe)
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		turn INTEGER NOT NULL,
		tribe TEXT NOT NULL DEFAULT '',
		action TEXT,
		diff TEXT,
		state_after TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (game_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_games_status ON games(status, created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// gameRow is the on-disk shape of a game; times are unix milliseconds.
type gameRow struct {
	ID           string        `db:"id"`
	Name         string        `db:"name"`
	Status       string        `db:"status"`
	Winner       string        `db:"winner"`
	Width        int           `db:"width"`
	Height       int           `db:"height"`
	Seed         int64         `db:"seed"`
	Turn         int           `db:"turn"`
	CurrentTribe string        `db:"current_tribe"`
	CreatedAt    int64         `db:"created_at"`
	FinishedAt   sql.NullInt64 `db:"finished_at"`
}

func (r gameRow) model() model.Game {
	g := model.Game{
		ID: r.ID, Name: r.Name, Status: r.Status, Winner: r.Winner,
		Width: r.Width, Height: r.Height, Seed: r.Seed, Turn: r.Turn,
		CurrentTribe: r.CurrentTribe, CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.FinishedAt.Valid {
		t := time.UnixMilli(r.FinishedAt.Int64).UTC()
		g.FinishedAt = &t
	}
	return g
}

type turnRow struct {
	ID         string         `db:"id"`
	GameID     string         `db:"game_id"`
	Seq        int            `db:"seq"`
	Turn       int            `db:"turn"`
	Tribe      string         `db:"tribe"`
	Action     sql.NullString `db:"action"`
	Diff       sql.NullString `db:"diff"`
	StateAfter string         `db:"state_after"`
	CreatedAt  int64          `db:"created_at"`
}

func (r turnRow) model() model.Turn {
	t := model.Turn{
		ID: r.ID, GameID: r.GameID, Seq: r.Seq, Turn: r.Turn, Tribe: r.Tribe,
		StateAfter: json.RawMessage(r.StateAfter), CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.Action.Valid {
		t.Action = json.RawMessage(r.Action.String)
	}
	if r.Diff.Valid {
		t.Diff = json.RawMessage(r.Diff.String)
	}
	return t
}

func nullText(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// Create inserts a new game and its seats.
func (db *DB) Create(ctx context.Context, g *model.Game) (*model.Game, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	out := *g
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err = tx.ExecContext(ctx, `INSERT INTO games
		(id, name, status, winner, width, height, seed, turn, current_tribe, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.Name, out.Status, out.Winner, out.Width, out.Height, out.Seed,
		out.Turn, out.CurrentTribe, out.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO game_seats (game_id, tribe, controller, strategy) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert seat: %w", err)
	}
	defer stmt.Close()

	out.Seats = make([]model.Seat, len(g.Seats))
	for i, s := range g.Seats {
		s.GameID = out.ID
		if _, err := stmt.ExecContext(ctx, s.GameID, s.Tribe, s.Controller, s.Strategy); err != nil {
			return nil, fmt.Errorf("insert seat: %w", err)
		}
		out.Seats[i] = s
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit game: %w", err)
	}
	return &out, nil
}

// FindByID returns a game with its seats, or nil if it does not exist.
func (db *DB) FindByID(ctx context.Context, id string) (*model.Game, error) {
	var row gameRow
	err := db.conn.GetContext(ctx, &row, `SELECT * FROM games WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	g := row.model()

	var seats []model.Seat
	err = db.conn.SelectContext(ctx, &seats,
		`SELECT game_id, tribe, controller, strategy FROM game_seats WHERE game_id = ?
		 ORDER BY CASE tribe WHEN 'RED' THEN 1 WHEN 'BLUE' THEN 2 WHEN 'GREEN' THEN 3 ELSE 4 END`, id)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	g.Seats = seats
	return &g, nil
}

// List returns games, most recent first. An empty status lists every game.
func (db *DB) List(ctx context.Context, status string, limit int) ([]model.Game, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []gameRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT * FROM games WHERE ? = '' OR status = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, status, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games := make([]model.Game, len(rows))
	for i, r := range rows {
		games[i] = r.model()
	}
	return games, nil
}

// UpdateProgress records the turn counter and the tribe to move.
func (db *DB) UpdateProgress(ctx context.Context, gameID string, turn int, currentTribe string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE games SET turn = ?, current_tribe = ? WHERE id = ?`, turn, currentTribe, gameID)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// SetFinished marks a game as finished.
func (db *DB) SetFinished(ctx context.Context, gameID, winner string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE games SET status = ?, winner = ?, finished_at = ? WHERE id = ?`,
		model.GameFinished, winner, time.Now().UnixMilli(), gameID)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// Delete removes a game with its seats and turns.
func (db *DB) Delete(ctx context.Context, gameID string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM turns WHERE game_id = ?`,
		`DELETE FROM game_seats WHERE game_id = ?`,
		`DELETE FROM games WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, gameID); err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
	}
	return tx.Commit()
}

// AppendTurn inserts the next turn row.
func (db *DB) AppendTurn(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	out := *t
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := db.conn.ExecContext(ctx, `INSERT INTO turns
		(id, game_id, seq, turn, tribe, action, diff, state_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.GameID, out.Seq, out.Turn, out.Tribe,
		nullText(out.Action), nullText(out.Diff), string(out.StateAfter), out.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	return &out, nil
}

// LatestTurn returns the highest-sequence turn for a game, or nil.
func (db *DB) LatestTurn(ctx context.Context, gameID string) (*model.Turn, error) {
	var row turnRow
	err := db.conn.GetContext(ctx, &row,
		`SELECT * FROM turns WHERE game_id = ? ORDER BY seq DESC LIMIT 1`, gameID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest turn: %w", err)
	}
	t := row.model()
	return &t, nil
}

// ListTurns returns every turn of a game in sequence order.
func (db *DB) ListTurns(ctx context.Context, gameID string) ([]model.Turn, error) {
	var rows []turnRow
	if err := db.conn.SelectContext(ctx, &rows,
		`SELECT * FROM turns WHERE game_id = ? ORDER BY seq`, gameID); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	turns := make([]model.Turn, len(rows))
	for i, r := range rows {
		turns[i] = r.model()
	}
	return turns, nil
}
