package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/tribes/internal/model"
)

const gameColumns = `id, name, status, winner, width, height, seed, turn, current_tribe, created_at, finished_at`

// GameRepo handles game and game_seat database operations.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Create inserts a new game and its seats in one transaction.
func (r *GameRepo) Create(ctx context.Context, g *model.Game) (*model.Game, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	out := *g
	var winner sql.NullString
	err = tx.QueryRowContext(ctx,
		`INSERT INTO games (name, status, width, height, seed, turn, current_tribe)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+gameColumns,
		g.Name, g.Status, g.Width, g.Height, g.Seed, g.Turn, g.CurrentTribe,
	).Scan(&out.ID, &out.Name, &out.Status, &winner, &out.Width, &out.Height, &out.Seed,
		&out.Turn, &out.CurrentTribe, &out.CreatedAt, &out.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	out.Winner = winner.String

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO game_seats (game_id, tribe, controller, strategy) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert seat: %w", err)
	}
	defer stmt.Close()

	out.Seats = make([]model.Seat, len(g.Seats))
	for i, s := range g.Seats {
		s.GameID = out.ID
		if _, err := stmt.ExecContext(ctx, s.GameID, s.Tribe, s.Controller, nullStr(s.Strategy)); err != nil {
			return nil, fmt.Errorf("insert seat: %w", err)
		}
		out.Seats[i] = s
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit game: %w", err)
	}
	return &out, nil
}

// FindByID returns a game by ID with its seats.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}

	seats, err := r.ListSeats(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Seats = seats
	return g, nil
}

// List returns games, most recent first. An empty status lists every game.
func (r *GameRepo) List(ctx context.Context, status string, limit int) ([]model.Game, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at DESC LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// ListSeats returns the seats of a game in tribe order.
func (r *GameRepo) ListSeats(ctx context.Context, gameID string) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, tribe, controller, strategy FROM game_seats WHERE game_id = $1
		 ORDER BY CASE tribe WHEN 'RED' THEN 1 WHEN 'BLUE' THEN 2 WHEN 'GREEN' THEN 3 ELSE 4 END`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		var strategy sql.NullString
		if err := rows.Scan(&s.GameID, &s.Tribe, &s.Controller, &strategy); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		s.Strategy = strategy.String
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// UpdateProgress records the turn counter and the tribe to move.
func (r *GameRepo) UpdateProgress(ctx context.Context, gameID string, turn int, currentTribe string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET turn = $1, current_tribe = $2 WHERE id = $3`,
		turn, currentTribe, gameID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// SetFinished marks a game as finished.
func (r *GameRepo) SetFinished(ctx context.Context, gameID, winner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'FINISHED', winner = $1, finished_at = now() WHERE id = $2`,
		nullStr(winner), gameID,
	)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// Delete removes a game and all associated data (cascades to seats and turns).
func (r *GameRepo) Delete(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*model.Game, error) {
	var g model.Game
	var winner sql.NullString
	if err := row.Scan(&g.ID, &g.Name, &g.Status, &winner, &g.Width, &g.Height, &g.Seed,
		&g.Turn, &g.CurrentTribe, &g.CreatedAt, &g.FinishedAt); err != nil {
		return nil, err
	}
	g.Winner = winner.String
	return &g, nil
}
