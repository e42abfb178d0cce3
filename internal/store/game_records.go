package store

import (
	"context"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"agent-arena/internal/history"
	"agent-arena/internal/ids"
)

var _ history.Repository = (*Store)(nil)

const gameRecordColumns = `id, session_id, game, players, winner, outcome, reason,
	started_at, ended_at, moves, player_models, winner_model`

func (s *Store) InsertGameRecord(ctx context.Context, rec history.Record) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	models := rec.PlayerModels
	if models == nil {
		models = map[string]string{}
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO game_records (`+gameRecordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.SessionID, rec.Game, rec.Players, textParam(rec.Winner), rec.Outcome, rec.Reason,
		rec.StartedAt, rec.EndedAt, rec.Moves, models, textParam(rec.WinnerModel))
	return err
}

// ListGameRecords returns the newest records matching q, oldest first.
// Filters and the limit run in SQL.
func (s *Store) ListGameRecords(ctx context.Context, q history.Query) ([]history.Record, error) {
	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+gameRecordColumns+` FROM game_records
		WHERE ($1 = '' OR lower(game) = lower($1))
		  AND ($2 = '' OR EXISTS (SELECT 1 FROM unnest(players) AS p WHERE lower(p) = lower($2)))
		ORDER BY ended_at DESC, id DESC
		LIMIT $3`, q.Game, q.Player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.Record
	for rows.Next() {
		rec, err := scanGameRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (s *Store) GetGameRecord(ctx context.Context, id string) (history.Record, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+gameRecordColumns+` FROM game_records WHERE id = $1`, id)
	rec, err := scanGameRecord(row)
	if err != nil {
		return history.Record{}, mapNotFound(err)
	}
	return rec, nil
}

func (s *Store) ClearGameRecords(ctx context.Context) (int, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM game_records`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanGameRecord(row pgx.Row) (history.Record, error) {
	var (
		rec         history.Record
		winner      pgtype.Text
		winnerModel pgtype.Text
	)
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.Game, &rec.Players, &winner, &rec.Outcome, &rec.Reason,
		&rec.StartedAt, &rec.EndedAt, &rec.Moves, &rec.PlayerModels, &winnerModel); err != nil {
		return history.Record{}, err
	}
	rec.Winner = textVal(winner)
	rec.WinnerModel = textVal(winnerModel)
	return rec, nil
}
