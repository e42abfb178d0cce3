package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"agent-arena/internal/agent"
	"agent-arena/internal/arena"
	"agent-arena/internal/chat"
	"agent-arena/internal/history"
)

// Arena is a fully wired orchestrator over an in-process hub and in-memory
// history. Nobody answers move prompts, so games end by timeout unless the
// test posts moves on Hub.
type Arena struct {
	Agents  *agent.Registry
	Hub     *chat.Hub
	Games   *arena.Orchestrator
	History *history.Service
}

// NewArena registers the agents sage, bard and owl (names Sage, Bard, Owl).
func NewArena(t *testing.T, moveTimeout time.Duration) *Arena {
	t.Helper()
	reg := agent.NewRegistry()
	for _, spec := range [][3]string{{"sage", "Sage", "openai/gpt-4o"}, {"bard", "Bard", "claude-3"}, {"owl", "Owl", "mistral"}} {
		reg.Add(agent.New(spec[0], spec[1], spec[2], agent.Settings{
			Cadence:      time.Minute,
			Probability:  0.5,
			MaxLength:    200,
			SystemPrompt: "You are " + spec[1] + ".",
		}))
	}
	hub := chat.NewHub(200)
	profiles := arena.NewProfiles(nil)
	contexts := arena.NewContextManager(reg, profiles)
	pool := arena.NewCommentaryPool(1, 8)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	hist := history.NewService(history.NewMemoryRepository(100))
	orch := arena.NewOrchestrator(arena.Config{MoveTimeout: moveTimeout}, arena.Deps{
		Directory: reg,
		Contexts:  contexts,
		Profiles:  profiles,
		Transport: hub,
		Pool:      pool,
		Recorder:  hist,
	})
	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		_ = orch.Shutdown(shutdownCtx)
		cancel()
		pool.Stop()
	})
	return &Arena{Agents: reg, Hub: hub, Games: orch, History: hist}
}

// WaitIdle blocks until the active game, if any, has finished teardown.
func (a *Arena) WaitIdle(t *testing.T) {
	t.Helper()
	h, ok := a.Games.ActiveGame()
	if !ok {
		return
	}
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("game did not finish")
	}
}

// Autoplay answers each turn prompt addressed to a player with that
// player's next scripted move. Call it before starting the game.
func (a *Arena) Autoplay(t *testing.T, moves map[string][]string) {
	t.Helper()
	msgs, cancel := a.Hub.Subscribe()
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for m := range msgs {
			if m.Author != agent.AuthorGameMaster {
				continue
			}
			for name := range moves {
				if !strings.HasPrefix(m.Content, name+", it's your turn") {
					continue
				}
				mu.Lock()
				queue := moves[name]
				if len(queue) == 0 {
					mu.Unlock()
					continue
				}
				next := queue[0]
				moves[name] = queue[1:]
				mu.Unlock()
				ag, ok := a.Agents.ByName(name)
				if !ok {
					continue
				}
				_, _ = a.Hub.Send(context.Background(), chat.Outgoing{
					Author:   ag.Name,
					AuthorID: ag.ID,
					Content:  next,
					IsAgent:  true,
				})
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}
