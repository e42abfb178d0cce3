package history

import (
	"context"
	"testing"
	"time"

	"agent-arena/internal/arena"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(game string, a, b, winner, outcome string, moves int, secs int, models ...string) Record {
	r := Record{
		Game:         game,
		Players:      []string{a, b},
		Winner:       winner,
		Outcome:      outcome,
		StartedAt:    base,
		EndedAt:      base.Add(time.Duration(secs) * time.Second),
		Moves:        moves,
		PlayerModels: map[string]string{},
	}
	if len(models) == 2 {
		r.PlayerModels[a] = models[0]
		r.PlayerModels[b] = models[1]
		switch winner {
		case a:
			r.WinnerModel = models[0]
		case b:
			r.WinnerModel = models[1]
		}
	}
	return r
}

func fixture() []Record {
	return []Record{
		rec("tictactoe", "Sage", "Bard", "Sage", OutcomeWin, 5, 30, "openai/gpt-4.1-mini", "anthropic/claude-haiku"),
		rec("tictactoe", "Sage", "Bard", "", OutcomeTie, 9, 60, "gpt-4.1-mini", "claude-haiku"),
		rec("chess", "Bard", "Owl", "Bard", OutcomeWin, 40, 300, "claude-haiku", "gpt-4.1-mini"),
		rec("tictactoe", "Owl", "Bard", "", OutcomeTimeout, 2, 120, "gpt-4.1-mini", "claude-haiku"),
	}
}

func TestByGame(t *testing.T) {
	s := ByGame(fixture(), "tictactoe")
	if s.TotalGames != 3 || s.Ties != 1 || s.Timeouts != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.WinsByAgent["Sage"] != 1 || len(s.WinsByAgent) != 1 {
		t.Fatalf("wins = %+v", s.WinsByAgent)
	}
	if s.AvgMoves != 16.0/3 || s.AvgDurationSeconds != 70 {
		t.Fatalf("averages = %v moves %v secs", s.AvgMoves, s.AvgDurationSeconds)
	}
	if empty := ByGame(fixture(), "connectfour"); empty.TotalGames != 0 || empty.AvgMoves != 0 {
		t.Fatalf("empty = %+v", empty)
	}
}

func TestByAgentCountsTimeoutAsLoss(t *testing.T) {
	s := ByAgent(fixture(), "bard")
	if s.TotalGames != 4 || s.Wins != 1 || s.Ties != 1 || s.Losses != 2 {
		t.Fatalf("stats = %+v", s)
	}
	if s.WinRate != 25 || s.GamesByType["tictactoe"] != 3 || s.GamesByType["chess"] != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if none := ByAgent(fixture(), "Nobody"); none.TotalGames != 0 || none.WinRate != 0 {
		t.Fatalf("none = %+v", none)
	}
}

func TestHeadToHead(t *testing.T) {
	h := HeadToHeadStats(fixture(), "Sage", "Bard")
	if h.TotalGames != 2 || h.WinsA != 1 || h.WinsB != 0 || h.Ties != 1 || h.GamesByType["tictactoe"] != 2 {
		t.Fatalf("h2h = %+v", h)
	}
}

func TestModelStatsNormalizeProvider(t *testing.T) {
	s := ByModel(fixture(), "openai/gpt-4.1-mini")
	if s.Model != "gpt-4.1-mini" || s.TotalGames != 4 || s.Wins != 1 || s.Ties != 1 || s.Losses != 2 {
		t.Fatalf("stats = %+v", s)
	}
	if got := s.GamesByType["chess"]; got != (Tally{Total: 1, Losses: 1}) {
		t.Fatalf("chess tally = %+v", got)
	}
	all := AllModels(fixture())
	if len(all) != 2 || all["claude-haiku"].Wins != 1 {
		t.Fatalf("all = %+v", all)
	}
}

func TestModelsByGameCountsMirrorMatchPerSeat(t *testing.T) {
	recs := append(fixture(), rec("tictactoe", "Cat", "Fox", "Cat", OutcomeWin, 7, 10, "x/mini", "y/mini"))
	m := ModelsByGame(recs, "tictactoe")
	if got := m["mini"]; got.TotalGames != 2 || got.Wins != 2 || got.Losses != 0 || got.AvgMoves != 7 {
		t.Fatalf("mini = %+v", got)
	}
	if got := m["gpt-4.1-mini"]; got.TotalGames != 3 || got.Wins != 1 || got.Ties != 1 {
		t.Fatalf("gpt = %+v", got)
	}
}

func TestLeaderboardMinGamesAndOrder(t *testing.T) {
	recs := fixture()
	for i := 0; i < 3; i++ {
		recs = append(recs, rec("connectfour", "Cat", "Fox", "Cat", OutcomeWin, 12, 40, "a/ace", "b/bot"))
	}
	board := Leaderboard(recs, DefaultLeaderboardMinGames)
	if len(board) != 4 {
		t.Fatalf("board = %+v", board)
	}
	if board[0].Model != "ace" || board[len(board)-1].Model != "bot" {
		t.Fatalf("order = %s .. %s", board[0].Model, board[len(board)-1].Model)
	}
	if len(Leaderboard(recs, 5)) != 0 {
		t.Fatal("min games filter not applied")
	}
}

func TestRecentNewestFirst(t *testing.T) {
	recs := fixture()
	got := Recent(recs, 2)
	if len(got) != 2 || got[0].Game != "chess" || got[1].Game != "tictactoe" || got[1].Moves != 2 {
		t.Fatalf("recent = %+v", got)
	}
}

func TestServiceRecordsArenaResult(t *testing.T) {
	repo := NewMemoryRepository(0)
	svc := NewService(repo)
	res := arena.GameResult{
		SessionID: "game_1",
		Game:      "tictactoe",
		Players:   [2]arena.Player{{ID: "sage", Name: "Sage", Model: "openai/gpt-4.1-mini"}, {ID: "bard", Name: "Bard"}},
		Outcome:   arena.OutcomeWin,
		WinnerID:  "sage",
		Moves:     5,
		StartedAt: base,
		EndedAt:   base.Add(time.Minute),
	}
	if err := svc.RecordResult(context.Background(), res); err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}
	draw := res
	draw.Outcome, draw.WinnerID = arena.OutcomeDraw, ""
	if err := svc.RecordResult(context.Background(), draw); err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}
	recs, _ := svc.Records(context.Background())
	if len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}
	first := recs[0]
	if first.Winner != "Sage" || first.WinnerModel != "openai/gpt-4.1-mini" || first.ID == "" || first.SessionID != "game_1" {
		t.Fatalf("record = %+v", first)
	}
	if _, ok := first.PlayerModels["Bard"]; ok {
		t.Fatal("empty model should not be stored")
	}
	if recs[1].Outcome != OutcomeTie || recs[1].Winner != "" {
		t.Fatalf("draw record = %+v", recs[1])
	}
	n, err := svc.Clear(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Clear() = %d, %v", n, err)
	}
}

func TestMemoryRepositoryBound(t *testing.T) {
	repo := NewMemoryRepository(2)
	for _, g := range []string{"a", "b", "c"} {
		_ = repo.InsertGameRecord(context.Background(), Record{Game: g})
	}
	recs, _ := repo.ListGameRecords(context.Background(), Query{})
	if len(recs) != 2 || recs[0].Game != "b" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestMemoryRepositoryQueryFiltersAndLimit(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	for i, r := range []Record{
		{ID: "1", Game: "chess", Players: []string{"Sage", "Bard"}},
		{ID: "2", Game: "TicTacToe", Players: []string{"Sage", "Owl"}},
		{ID: "3", Game: "chess", Players: []string{"Owl", "Fox"}},
		{ID: "4", Game: "Chess", Players: []string{"sage", "Fox"}},
	} {
		r.EndedAt = time.Unix(int64(i), 0)
		_ = repo.InsertGameRecord(ctx, r)
	}
	recs, _ := repo.ListGameRecords(ctx, Query{Game: "CHESS", Player: "SAGE"})
	if len(recs) != 2 || recs[0].ID != "1" || recs[1].ID != "4" {
		t.Fatalf("filtered = %+v, want records 1 and 4", recs)
	}
	recs, _ = repo.ListGameRecords(ctx, Query{Limit: 2})
	if len(recs) != 2 || recs[0].ID != "3" || recs[1].ID != "4" {
		t.Fatalf("limited = %+v, want newest two oldest first", recs)
	}
}

func TestServiceStatsWindow(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = repo.InsertGameRecord(ctx, Record{
			Game:    "chess",
			Players: []string{"Sage", "Bard"},
			Winner:  "Sage",
			Outcome: OutcomeWin,
			EndedAt: time.Unix(int64(i), 0),
		})
	}
	svc := NewService(repo).WithWindow(3)
	gs, err := svc.GameStats(ctx, "chess")
	if err != nil || gs.TotalGames != 3 {
		t.Fatalf("GameStats() = %+v, %v; want 3 games in window", gs, err)
	}
	recent, _ := svc.Recent(ctx, 10)
	if len(recent) != 3 {
		t.Fatalf("Recent() = %d records, want 3", len(recent))
	}
	recent, _ = svc.Recent(ctx, 2)
	if len(recent) != 2 || !recent[0].EndedAt.Equal(time.Unix(4, 0)) {
		t.Fatalf("Recent(2) = %+v", recent)
	}
}
