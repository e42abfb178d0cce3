package history

import (
	"context"
	"strings"
	"time"
)

const (
	OutcomeWin     = "win"
	OutcomeTie     = "tie"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
	OutcomeAborted = "aborted"
)

// Record is one finished game. Players and Winner hold display names, which
// is what stats are keyed by.
type Record struct {
	ID           string            `json:"id"`
	SessionID    string            `json:"session_id"`
	Game         string            `json:"game"`
	Players      []string          `json:"players"`
	Winner       string            `json:"winner,omitempty"`
	Outcome      string            `json:"outcome"`
	Reason       string            `json:"reason,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      time.Time         `json:"ended_at"`
	Moves        int               `json:"moves"`
	PlayerModels map[string]string `json:"player_models,omitempty"`
	WinnerModel  string            `json:"winner_model,omitempty"`
}

func (r Record) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

func (r Record) HasPlayer(name string) bool {
	for _, p := range r.Players {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

func (r Record) IsWinner(name string) bool {
	return r.Winner != "" && strings.EqualFold(r.Winner, name)
}

// Repository persists records. List returns them oldest first.
type Repository interface {
	InsertGameRecord(ctx context.Context, rec Record) error
	ListGameRecords(ctx context.Context, q Query) ([]Record, error)
	ClearGameRecords(ctx context.Context) (int, error)
}

// Query narrows ListGameRecords. Game and Player match case-insensitively
// when set. Limit keeps the newest records; the result is oldest first.
type Query struct {
	Game   string
	Player string
	Limit  int
}

// Match reports whether r passes the Game and Player filters.
func (q Query) Match(r Record) bool {
	if q.Game != "" && !strings.EqualFold(q.Game, r.Game) {
		return false
	}
	return q.Player == "" || r.HasPlayer(q.Player)
}

// NormalizeModel keeps the last path segment so "openai/gpt-4.1-mini" and
// "gpt-4.1-mini" count as the same model.
func NormalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}
