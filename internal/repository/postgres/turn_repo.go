package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/tribes/internal/model"
)

// TurnRepo handles the append-only turn log.
type TurnRepo struct {
	db *sql.DB
}

// NewTurnRepo creates a TurnRepo.
func NewTurnRepo(db *sql.DB) *TurnRepo {
	return &TurnRepo{db: db}
}

// AppendTurn inserts the next turn row. The unique (game_id, seq) key rejects
// a second writer racing for the same slot.
func (r *TurnRepo) AppendTurn(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	out := *t
	var tribe sql.NullString
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO turns (game_id, seq, turn, tribe, action, diff, state_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, tribe, created_at`,
		t.GameID, t.Seq, t.Turn, nullStr(t.Tribe), nullJSON(t.Action), nullJSON(t.Diff), string(t.StateAfter),
	).Scan(&out.ID, &tribe, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	out.Tribe = tribe.String
	return &out, nil
}

// LatestTurn returns the highest-sequence turn for a game.
func (r *TurnRepo) LatestTurn(ctx context.Context, gameID string) (*model.Turn, error) {
	t, err := scanTurn(r.db.QueryRowContext(ctx,
		`SELECT id, game_id, seq, turn, tribe, action, diff, state_after, created_at
		 FROM turns WHERE game_id = $1
		 ORDER BY seq DESC LIMIT 1`, gameID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest turn: %w", err)
	}
	return t, nil
}

// ListTurns returns every turn of a game in sequence order.
func (r *TurnRepo) ListTurns(ctx context.Context, gameID string) ([]model.Turn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, seq, turn, tribe, action, diff, state_after, created_at
		 FROM turns WHERE game_id = $1 ORDER BY seq`, gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, *t)
	}
	return turns, rows.Err()
}

func scanTurn(row rowScanner) (*model.Turn, error) {
	var t model.Turn
	var tribe, action, diff sql.NullString
	var stateAfter string
	if err := row.Scan(&t.ID, &t.GameID, &t.Seq, &t.Turn, &tribe, &action, &diff, &stateAfter, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Tribe = tribe.String
	if action.Valid {
		t.Action = json.RawMessage(action.String)
	}
	if diff.Valid {
		t.Diff = json.RawMessage(diff.String)
	}
	t.StateAfter = json.RawMessage(stateAfter)
	return &t, nil
}
