package arena

import (
	"errors"
	"strings"
	"testing"
	"time"

	"agent-arena/internal/agent"
	"agent-arena/internal/config"
	"agent-arena/internal/game"
)

func TestEnterExitRestoresEverySnapshottedField(t *testing.T) {
	reg := newRegistry("Sage", "Bard")
	cm := NewContextManager(reg, NewProfiles(nil))
	sage := mustAgent(t, reg, "sage")
	before := sage.Settings()

	snap, err := cm.EnterGameMode(sage, "chess", "Bard", nil)
	if err != nil {
		t.Fatalf("EnterGameMode() error = %v", err)
	}
	if snap != before {
		t.Fatalf("snapshot = %+v, want %+v", snap, before)
	}
	during := sage.Settings()
	if during.Cadence != 3*time.Second || during.Probability != 1 || during.MaxLength != 160 {
		t.Fatalf("game profile not applied: %+v", during)
	}
	if during.Memory.Enabled() {
		t.Fatal("memory should be detached in game mode")
	}
	if !strings.HasPrefix(during.SystemPrompt, before.SystemPrompt) ||
		!strings.Contains(during.SystemPrompt, "You are Sage, playing chess against Bard") {
		t.Fatalf("system prompt augmentation wrong: %q", during.SystemPrompt)
	}
	if !cm.IsInGame("sage") {
		t.Fatal("sage should be in game")
	}

	if err := cm.ExitGameMode("sage"); err != nil {
		t.Fatalf("ExitGameMode() error = %v", err)
	}
	if after := sage.Settings(); after != before {
		t.Fatalf("settings after exit = %+v, want %+v", after, before)
	}
	if cm.IsInGame("sage") {
		t.Fatal("sage still marked in game")
	}
	if !hasNotice(sage, "no longer playing") {
		t.Fatal("transition notice missing from history")
	}
	if err := cm.ExitGameMode("sage"); !errors.Is(err, ErrNotInGame) {
		t.Fatalf("second exit err = %v, want ErrNotInGame", err)
	}
}

func TestEnterGameModeTwiceIsAlreadyInGame(t *testing.T) {
	reg := newRegistry("Sage")
	cm := NewContextManager(reg, NewProfiles(nil))
	sage := mustAgent(t, reg, "sage")
	before := sage.Settings()

	if _, err := cm.EnterGameMode(sage, "tictactoe", "Bard", nil); err != nil {
		t.Fatalf("EnterGameMode() error = %v", err)
	}
	if _, err := cm.EnterGameMode(sage, "tictactoe", "Bard", nil); !errors.Is(err, ErrAlreadyInGame) {
		t.Fatalf("err = %v, want ErrAlreadyInGame", err)
	}
	if err := cm.ExitGameMode("sage"); err != nil {
		t.Fatalf("ExitGameMode() error = %v", err)
	}
	if sage.Settings() != before {
		t.Fatal("double entry corrupted the snapshot")
	}
}

func TestEnterGameModeUnknownGameLeavesAgentAlone(t *testing.T) {
	reg := newRegistry("Sage")
	cm := NewContextManager(reg, NewProfiles(nil))
	sage := mustAgent(t, reg, "sage")
	before := sage.Settings()
	if _, err := cm.EnterGameMode(sage, "wordle", "Bard", nil); !errors.Is(err, game.ErrUnknownGame) {
		t.Fatalf("err = %v, want ErrUnknownGame", err)
	}
	if sage.Settings() != before || cm.IsInGame("sage") {
		t.Fatal("failed entry mutated state")
	}
}

func TestExitGameModeVanishedAgentDiscardsSnapshot(t *testing.T) {
	reg := newRegistry("Sage")
	cm := NewContextManager(reg, NewProfiles(nil))
	if _, err := cm.EnterGameMode(mustAgent(t, reg, "sage"), "tictactoe", "Bard", nil); err != nil {
		t.Fatalf("EnterGameMode() error = %v", err)
	}
	reg.Remove("sage")

	err := cm.ExitGameMode("sage")
	var ase *AgentStateError
	if !errors.As(err, &ase) || ase.AgentID != "sage" || !errors.Is(err, ErrAgentState) {
		t.Fatalf("err = %v, want AgentStateError for sage", err)
	}
	if cm.IsInGame("sage") {
		t.Fatal("snapshot should be discarded")
	}
}

func TestTurnContextStaysPrivate(t *testing.T) {
	reg := newRegistry("Sage")
	cm := NewContextManager(reg, NewProfiles(nil))
	sage := mustAgent(t, reg, "sage")

	if err := cm.UpdateTurnContext("sage", "hint"); !errors.Is(err, ErrNotInGame) {
		t.Fatalf("err = %v, want ErrNotInGame", err)
	}
	if _, err := cm.EnterGameMode(sage, "tictactoe", "Bard", nil); err != nil {
		t.Fatalf("EnterGameMode() error = %v", err)
	}
	if err := cm.UpdateTurnContext("sage", "  the corner is open  "); err != nil {
		t.Fatalf("UpdateTurnContext() error = %v", err)
	}
	if got := cm.TurnContext("sage"); got != "the corner is open" {
		t.Fatalf("turn context = %q", got)
	}

	req := sage.BuildPrompt(cm.TurnContext("sage"), nil)
	if !strings.Contains(req.System, "the corner is open") {
		t.Fatal("turn context missing from private prompt")
	}
	for _, e := range sage.History(time.Time{}) {
		if strings.Contains(e.Content, "corner") {
			t.Fatal("turn context leaked into history")
		}
	}

	_ = cm.UpdateTurnContext("sage", "")
	if cm.TurnContext("sage") != "" {
		t.Fatal("empty hint should clear")
	}
}

func TestEligibilityAndActiveAgents(t *testing.T) {
	reg := newRegistry("Sage", "Bard", "Owl", "Fox")
	cm := NewContextManager(reg, NewProfiles(nil))
	var gate agent.Gate = cm

	if _, err := cm.EnterGameMode(mustAgent(t, reg, "sage"), "tictactoe", "Bard", nil); err != nil {
		t.Fatalf("EnterGameMode() error = %v", err)
	}
	if err := cm.AddSpectator("owl", "tictactoe"); err != nil {
		t.Fatalf("AddSpectator() error = %v", err)
	}
	if err := cm.AddSpectator("sage", "tictactoe"); !errors.Is(err, ErrAlreadyInGame) {
		t.Fatalf("player as spectator err = %v", err)
	}

	if !gate.Eligible("fox") {
		t.Fatal("free agent should be eligible")
	}
	if gate.Eligible("owl") {
		t.Fatal("spectator must be suppressed")
	}
	if gate.Eligible("sage") {
		t.Fatal("player is only eligible while its move is awaited")
	}
	cm.setAwaiting("sage", true)
	if !gate.Eligible("sage") {
		t.Fatal("awaited player should be eligible")
	}

	if got := strings.Join(cm.ActiveAgents(), ","); got != "owl,sage" {
		t.Fatalf("active agents = %s", got)
	}
	if role, _ := cm.Role("owl"); role != RoleSpectator {
		t.Fatalf("role = %s", role)
	}

	if err := cm.NotifySpectatorExit("owl", "tictactoe"); err != nil {
		t.Fatalf("NotifySpectatorExit() error = %v", err)
	}
	if cm.IsInGame("owl") || !gate.Eligible("owl") {
		t.Fatal("spectator should be released")
	}
	if !hasNotice(mustAgent(t, reg, "owl"), "you were watching has ended") {
		t.Fatal("spectator notice missing")
	}
}

func TestProfilesOverrides(t *testing.T) {
	zero := 0
	p := NewProfiles(map[string]config.GameProfile{
		"Connect-Four": {CadenceSeconds: 0.5, CommentaryInterval: &zero},
		"unknown":      {MaxLength: 5},
	})
	c4, ok := p.Lookup("connect4")
	if !ok {
		t.Fatal("connect4 alias should resolve")
	}
	if c4.Cadence != 500*time.Millisecond || c4.CommentaryInterval != 0 || c4.MaxLength != 120 {
		t.Fatalf("override not applied: %+v", c4)
	}
	if _, ok := p.Lookup("unknown"); ok {
		t.Fatal("overrides must not invent games")
	}
	if got := c4.Augmentation("Sage", "Bard"); !strings.Contains(got, "never move for Bard") {
		t.Fatalf("augmentation = %q", got)
	}
}
