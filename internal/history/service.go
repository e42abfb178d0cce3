package history

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/arena"
	"agent-arena/internal/ids"
)

const (
	DefaultLeaderboardMinGames = 3
	// DefaultStatsWindow bounds how many of the newest records any stats
	// query reads.
	DefaultStatsWindow = 10000
)

// Service answers stats queries over a Repository and records finished
// sessions.
type Service struct {
	repo   Repository
	window int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, window: DefaultStatsWindow}
}

// WithWindow changes the stats window. n <= 0 restores the default.
func (s *Service) WithWindow(n int) *Service {
	if n <= 0 {
		n = DefaultStatsWindow
	}
	s.window = n
	return s
}

func (s *Service) list(ctx context.Context, q Query) ([]Record, error) {
	if q.Limit <= 0 || q.Limit > s.window {
		q.Limit = s.window
	}
	return s.repo.ListGameRecords(ctx, q)
}

// FromResult converts a finished session. Draws are stored as ties.
func FromResult(res arena.GameResult) Record {
	rec := Record{
		ID:           ids.WithPrefix("rec"),
		SessionID:    res.SessionID,
		Game:         res.Game,
		Outcome:      string(res.Outcome),
		Reason:       res.Reason,
		StartedAt:    res.StartedAt,
		EndedAt:      res.EndedAt,
		Moves:        res.Moves,
		PlayerModels: map[string]string{},
	}
	if res.Outcome == arena.OutcomeDraw {
		rec.Outcome = OutcomeTie
	}
	for _, p := range res.Players {
		rec.Players = append(rec.Players, p.Name)
		if strings.TrimSpace(p.Model) != "" {
			rec.PlayerModels[p.Name] = p.Model
		}
	}
	if w, ok := res.Winner(); ok {
		rec.Winner = w.Name
		rec.WinnerModel = w.Model
	}
	return rec
}

// RecordResult stores a finished session.
func (s *Service) RecordResult(ctx context.Context, res arena.GameResult) error {
	rec := FromResult(res)
	if err := s.repo.InsertGameRecord(ctx, rec); err != nil {
		return err
	}
	log.Info().
		Str("session_id", rec.SessionID).
		Str("game", rec.Game).
		Strs("players", rec.Players).
		Str("winner", rec.Winner).
		Str("outcome", rec.Outcome).
		Msg("game_recorded")
	return nil
}

// Records returns the newest records inside the stats window, oldest first.
func (s *Service) Records(ctx context.Context) ([]Record, error) {
	return s.list(ctx, Query{})
}

func (s *Service) Clear(ctx context.Context) (int, error) {
	n, err := s.repo.ClearGameRecords(ctx)
	if err != nil {
		return 0, err
	}
	log.Warn().Int("count", n).Msg("game_history_cleared")
	return n, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	recs, err := s.list(ctx, Query{Limit: limit})
	if err != nil {
		return nil, err
	}
	return Recent(recs, limit), nil
}

func (s *Service) GameStats(ctx context.Context, game string) (GameStats, error) {
	recs, err := s.list(ctx, Query{Game: game})
	if err != nil {
		return GameStats{}, err
	}
	return ByGame(recs, game), nil
}

func (s *Service) AgentStats(ctx context.Context, name string) (AgentStats, error) {
	recs, err := s.list(ctx, Query{Player: name})
	if err != nil {
		return AgentStats{}, err
	}
	return ByAgent(recs, name), nil
}

func (s *Service) HeadToHead(ctx context.Context, a, b string) (HeadToHead, error) {
	recs, err := s.list(ctx, Query{Player: a})
	if err != nil {
		return HeadToHead{}, err
	}
	return HeadToHeadStats(recs, a, b), nil
}

func (s *Service) ModelStats(ctx context.Context, model string) (ModelStats, error) {
	recs, err := s.list(ctx, Query{})
	if err != nil {
		return ModelStats{}, err
	}
	return ByModel(recs, model), nil
}

func (s *Service) AllModels(ctx context.Context) (map[string]ModelStats, error) {
	recs, err := s.list(ctx, Query{})
	if err != nil {
		return nil, err
	}
	return AllModels(recs), nil
}

func (s *Service) ModelsByGame(ctx context.Context, game string) (map[string]ModelGameStats, error) {
	recs, err := s.list(ctx, Query{Game: game})
	if err != nil {
		return nil, err
	}
	return ModelsByGame(recs, game), nil
}

func (s *Service) Leaderboard(ctx context.Context, minGames int) ([]ModelStats, error) {
	recs, err := s.list(ctx, Query{})
	if err != nil {
		return nil, err
	}
	return Leaderboard(recs, minGames), nil
}
