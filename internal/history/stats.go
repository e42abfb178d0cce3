package history

import (
	"sort"
	"strings"
)

type GameStats struct {
	Game               string         `json:"game"`
	TotalGames         int            `json:"total_games"`
	WinsByAgent        map[string]int `json:"wins_by_agent"`
	AvgDurationSeconds float64        `json:"avg_duration_seconds"`
	AvgMoves           float64        `json:"avg_moves"`
	Ties               int            `json:"ties"`
	Timeouts           int            `json:"timeouts"`
}

type AgentStats struct {
	Agent       string         `json:"agent"`
	TotalGames  int            `json:"total_games"`
	Wins        int            `json:"wins"`
	Losses      int            `json:"losses"`
	Ties        int            `json:"ties"`
	WinRate     float64        `json:"win_rate"`
	GamesByType map[string]int `json:"games_by_type"`
}

type HeadToHead struct {
	AgentA      string         `json:"agent_a"`
	AgentB      string         `json:"agent_b"`
	TotalGames  int            `json:"total_games"`
	WinsA       int            `json:"wins_a"`
	WinsB       int            `json:"wins_b"`
	Ties        int            `json:"ties"`
	GamesByType map[string]int `json:"games_by_type"`
}

type Tally struct {
	Total  int `json:"total"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

type ModelStats struct {
	Model              string           `json:"model"`
	TotalGames         int              `json:"total_games"`
	Wins               int              `json:"wins"`
	Losses             int              `json:"losses"`
	Ties               int              `json:"ties"`
	WinRate            float64          `json:"win_rate"`
	GamesByType        map[string]Tally `json:"games_by_type"`
	AvgDurationSeconds float64          `json:"avg_duration_seconds"`
}

type ModelGameStats struct {
	Model      string  `json:"model"`
	TotalGames int     `json:"total_games"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Ties       int     `json:"ties"`
	TotalMoves int     `json:"total_moves"`
	WinRate    float64 `json:"win_rate"`
	AvgMoves   float64 `json:"avg_moves"`
}

func rate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

func ByGame(records []Record, game string) GameStats {
	out := GameStats{Game: game, WinsByAgent: map[string]int{}}
	var dur, moves float64
	for _, r := range records {
		if !strings.EqualFold(r.Game, game) {
			continue
		}
		out.TotalGames++
		dur += r.Duration().Seconds()
		moves += float64(r.Moves)
		if r.Winner != "" {
			out.WinsByAgent[r.Winner]++
		}
		switch r.Outcome {
		case OutcomeTie:
			out.Ties++
		case OutcomeTimeout:
			out.Timeouts++
		}
	}
	if out.TotalGames > 0 {
		out.AvgDurationSeconds = dur / float64(out.TotalGames)
		out.AvgMoves = moves / float64(out.TotalGames)
	}
	return out
}

// ByAgent counts every game without a win or tie as a loss, timeouts and
// aborted games included.
func ByAgent(records []Record, name string) AgentStats {
	out := AgentStats{Agent: name, GamesByType: map[string]int{}}
	for _, r := range records {
		if !r.HasPlayer(name) {
			continue
		}
		out.TotalGames++
		out.GamesByType[r.Game]++
		switch {
		case r.IsWinner(name):
			out.Wins++
		case r.Outcome == OutcomeTie:
			out.Ties++
		}
	}
	out.Losses = out.TotalGames - out.Wins - out.Ties
	out.WinRate = rate(out.Wins, out.TotalGames)
	return out
}

func HeadToHeadStats(records []Record, a, b string) HeadToHead {
	out := HeadToHead{AgentA: a, AgentB: b, GamesByType: map[string]int{}}
	for _, r := range records {
		if !r.HasPlayer(a) || !r.HasPlayer(b) {
			continue
		}
		out.TotalGames++
		out.GamesByType[r.Game]++
		switch {
		case r.IsWinner(a):
			out.WinsA++
		case r.IsWinner(b):
			out.WinsB++
		case r.Outcome == OutcomeTie:
			out.Ties++
		}
	}
	return out
}

func playsModel(r Record, model string) bool {
	for _, m := range r.PlayerModels {
		if NormalizeModel(m) == model {
			return true
		}
	}
	return false
}

// ByModel aggregates every game a model took part in. A mirror match counts
// once.
func ByModel(records []Record, model string) ModelStats {
	model = NormalizeModel(model)
	out := ModelStats{Model: model, GamesByType: map[string]Tally{}}
	var dur float64
	for _, r := range records {
		if !playsModel(r, model) {
			continue
		}
		out.TotalGames++
		dur += r.Duration().Seconds()
		t := out.GamesByType[r.Game]
		t.Total++
		switch {
		case r.Outcome == OutcomeTie:
			out.Ties++
			t.Ties++
		case r.WinnerModel != "" && NormalizeModel(r.WinnerModel) == model:
			out.Wins++
			t.Wins++
		default:
			out.Losses++
			t.Losses++
		}
		out.GamesByType[r.Game] = t
	}
	out.WinRate = rate(out.Wins, out.TotalGames)
	if out.TotalGames > 0 {
		out.AvgDurationSeconds = dur / float64(out.TotalGames)
	}
	return out
}

func AllModels(records []Record) map[string]ModelStats {
	seen := map[string]bool{}
	for _, r := range records {
		for _, m := range r.PlayerModels {
			if n := NormalizeModel(m); n != "" {
				seen[n] = true
			}
		}
	}
	out := make(map[string]ModelStats, len(seen))
	for m := range seen {
		out[m] = ByModel(records, m)
	}
	return out
}

// ModelsByGame counts per seat, so a mirror match adds two games for the
// model and a decisive one counts as two wins.
func ModelsByGame(records []Record, game string) map[string]ModelGameStats {
	out := map[string]ModelGameStats{}
	for _, r := range records {
		if !strings.EqualFold(r.Game, game) {
			continue
		}
		for _, m := range r.PlayerModels {
			name := NormalizeModel(m)
			s := out[name]
			s.Model = name
			s.TotalGames++
			s.TotalMoves += r.Moves
			switch {
			case r.Outcome == OutcomeTie:
				s.Ties++
			case r.WinnerModel != "" && NormalizeModel(r.WinnerModel) == name:
				s.Wins++
			default:
				s.Losses++
			}
			out[name] = s
		}
	}
	for name, s := range out {
		s.WinRate = rate(s.Wins, s.TotalGames)
		s.AvgMoves = float64(s.TotalMoves) / float64(s.TotalGames)
		out[name] = s
	}
	return out
}

// Leaderboard ranks models with at least minGames games by win rate, then
// wins, then name.
func Leaderboard(records []Record, minGames int) []ModelStats {
	var out []ModelStats
	for _, s := range AllModels(records) {
		if s.TotalGames >= minGames {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Recent returns up to limit records, newest first by end time.
func Recent(records []Record, limit int) []Record {
	out := append([]Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
