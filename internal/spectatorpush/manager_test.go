package spectatorpush

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"agent-arena/internal/arena"
	"agent-arena/internal/chat"
	"agent-arena/internal/spectatorpush/platforms"
)

type fakeAdapter struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	forceFail bool
	messages  []platforms.Message
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Send(_ context.Context, _ string, _ string, msg platforms.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = append(f.messages, msg)
	if f.forceFail || f.calls <= f.failFirst {
		return errors.New("fail")
	}
	return nil
}

func (f *fakeAdapter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAdapter) Messages() []platforms.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platforms.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startFakeManager(t *testing.T, cfg Config, fake platforms.Adapter) *Manager {
	t.Helper()
	m := NewManager(cfg)
	m.adapters = map[string]platforms.Adapter{"fake": fake}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	return m
}

func TestManagerRetryThenSuccess(t *testing.T) {
	cfg := Config{
		Enabled:   true,
		Targets:   []PushTarget{{Platform: "fake", Endpoint: "https://example.com", ScopeType: "all", Enabled: true}},
		Workers:   1,
		RetryMax:  2,
		RetryBase: 5 * time.Millisecond,
	}
	fake := &fakeAdapter{failFirst: 1}
	m := startFakeManager(t, cfg, fake)
	ok := m.enqueue(pushJob{
		Target:    cfg.Targets[0],
		Event:     NormalizedEvent{EventType: "move_applied", SessionID: "s"},
		Formatted: FormattedMessage{Title: "title", Description: "summary"},
	})
	if !ok {
		t.Fatal("expected enqueue success")
	}
	waitFor(t, "retry", func() bool { return fake.Calls() >= 2 })
}

func TestManagerForwardsSessionStream(t *testing.T) {
	cfg := Config{
		Enabled: true,
		Targets: []PushTarget{{Platform: "fake", Endpoint: "https://example.com", ScopeType: "game", ScopeValue: "tictactoe", Enabled: true}},
		Workers: 1,
	}
	fake := &fakeAdapter{}
	m := startFakeManager(t, cfg, fake)

	meta := arena.SessionMeta{
		SessionID: "game_1",
		Game:      "tictactoe",
		Players:   [2]arena.Player{{ID: "sage", Name: "Sage"}, {ID: "bard", Name: "Bard"}},
	}
	buf := chat.NewEventBuffer("session:game_1", 50)
	buf.Append(arena.EventGameStarted, map[string]any{"session_id": "game_1"})
	m.OnSessionStarted(meta, buf)
	m.OnSessionStarted(meta, buf)

	buf.Append(arena.EventTurnStarted, arena.TurnStartedData{PlayerID: "sage", Move: 1})
	buf.Append(arena.EventMoveApplied, arena.MoveData{PlayerID: "sage", Move: "5", Count: 1, State: "board"})
	buf.Append(arena.EventCommentary, arena.CommentaryData{Spectator: "Owl", Text: "bold center", MoveCount: 2})
	buf.Append(arena.EventGameOver, &arena.GameResult{Outcome: arena.OutcomeWin, WinnerID: "sage", Reason: "row", Moves: 5})
	buf.Close()
	m.OnSessionClosed("game_1")

	waitFor(t, "four pushes", func() bool { return fake.Calls() == 4 })
	time.Sleep(20 * time.Millisecond)
	if fake.Calls() != 4 {
		t.Fatalf("calls = %d, want 4 (game_started replayed once, turn_started skipped)", fake.Calls())
	}
	byTitle := map[string]platforms.Message{}
	for _, msg := range fake.Messages() {
		byTitle[msg.Title] = msg
	}
	if msg, ok := byTitle["Move 1 · tictactoe · S:game_1"]; !ok || msg.Content != "Sage played 5" {
		t.Fatalf("move message missing or wrong: %+v", byTitle)
	}
	if msg, ok := byTitle["Game Over · tictactoe · S:game_1"]; !ok || msg.Content != "Sage wins" {
		t.Fatalf("game over message missing or wrong: %+v", byTitle)
	}
	if msg, ok := byTitle["Game Started · tictactoe · S:game_1"]; !ok || msg.Content != "tictactoe: Sage vs Bard" {
		t.Fatalf("start message missing or wrong: %+v", byTitle)
	}
}

func TestManagerDisabledIgnoresSessions(t *testing.T) {
	m := NewManager(Config{})
	buf := chat.NewEventBuffer("s", 10)
	m.OnSessionStarted(arena.SessionMeta{SessionID: "s"}, buf)
	m.mu.Lock()
	n := len(m.subscriptions)
	m.mu.Unlock()
	if n != 0 {
		t.Fatal("disabled manager subscribed")
	}
}

func TestConfigFileAutoReloadAppliesWithoutRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.json")
	if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
		t.Fatalf("write initial targets: %v", err)
	}
	cfg := Config{Enabled: true, ConfigPath: path, ConfigReload: 10 * time.Millisecond, Workers: 1}
	m := startFakeManager(t, cfg, &fakeAdapter{})
	if len(m.currentTargets()) != 0 {
		t.Fatal("expected no targets initially")
	}
	next := `[{"platform":"fake","endpoint":"https://example.com","scope_type":"all","enabled":true}]`
	if err := os.WriteFile(path, []byte(next), 0o600); err != nil {
		t.Fatalf("write reloaded targets: %v", err)
	}
	waitFor(t, "reload", func() bool { return len(m.currentTargets()) == 1 })

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("write broken targets: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if len(m.currentTargets()) != 1 {
		t.Fatal("broken config should keep previous targets")
	}
}
