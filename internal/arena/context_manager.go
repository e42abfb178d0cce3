package arena

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/agent"
	"agent-arena/internal/game"
)

type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// AgentDirectory resolves the agents a session refers to.
type AgentDirectory interface {
	Get(id string) (*agent.Agent, bool)
	ByName(name string) (*agent.Agent, bool)
	IsAgentName(name string) bool
}

type gameContext struct {
	role        Role
	game        string
	opponent    string
	snapshot    agent.Settings
	turnContext string
	awaiting    bool
	enteredAt   time.Time
}

// ContextManager owns the save, apply and restore cycle of agent settings
// around game mode. It also answers the runner's eligibility questions.
type ContextManager struct {
	dir      AgentDirectory
	profiles Profiles

	mu       sync.Mutex
	contexts map[string]*gameContext
	now      func() time.Time
}

func NewContextManager(dir AgentDirectory, profiles Profiles) *ContextManager {
	return &ContextManager{
		dir:      dir,
		profiles: profiles,
		contexts: map[string]*gameContext{},
		now:      time.Now,
	}
}

// EnterGameMode snapshots a's settings and applies the game profile in one
// step. It returns the snapshot that ExitGameMode will restore.
func (m *ContextManager) EnterGameMode(a *agent.Agent, gameName, opponentName string, _ map[string]string) (agent.Settings, error) {
	if a == nil {
		return agent.Settings{}, &AgentStateError{Op: "enter"}
	}
	prof, ok := m.profiles.Lookup(gameName)
	if !ok {
		return agent.Settings{}, fmt.Errorf("%w: %s", game.ErrUnknownGame, gameName)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.contexts[a.ID]; exists {
		return agent.Settings{}, ErrAlreadyInGame
	}
	augment := prof.Augmentation(a.Name, opponentName)
	snapshot := a.Swap(func(s agent.Settings) agent.Settings {
		return agent.Settings{
			Cadence:      prof.Cadence,
			Probability:  prof.Probability,
			MaxLength:    prof.MaxLength,
			SystemPrompt: strings.TrimSpace(s.SystemPrompt + "\n\n" + augment),
			Memory:       agent.NoopMemory{},
		}
	})
	m.contexts[a.ID] = &gameContext{
		role:      RolePlayer,
		game:      game.CanonicalName(gameName),
		opponent:  opponentName,
		snapshot:  snapshot,
		enteredAt: m.now(),
	}
	metricGameModeEntered.Add(1)
	log.Info().
		Str("agent_id", a.ID).
		Str("game", game.CanonicalName(gameName)).
		Str("opponent", opponentName).
		Msg("game_mode_entered")
	return snapshot, nil
}

// ExitGameMode restores the snapshot taken on entry and leaves a transition
// notice in the agent's history. The snapshot is discarded even when the
// agent has vanished.
func (m *ContextManager) ExitGameMode(agentID string) error {
	m.mu.Lock()
	gc, ok := m.contexts[agentID]
	if ok && gc.role == RolePlayer {
		delete(m.contexts, agentID)
	}
	m.mu.Unlock()
	if !ok || gc.role != RolePlayer {
		return ErrNotInGame
	}

	a, ok := m.dir.Get(agentID)
	if !ok {
		log.Error().Str("agent_id", agentID).Str("game", gc.game).Msg("game mode exit on vanished agent")
		return &AgentStateError{AgentID: agentID, Op: "restore"}
	}
	a.Restore(gc.snapshot)
	a.AddMessage(agent.AuthorGameMaster, transitionNotice(gc.game, true), "", "", "")
	metricGameModeExited.Add(1)
	log.Info().
		Str("agent_id", agentID).
		Str("game", gc.game).
		Dur("duration", m.now().Sub(gc.enteredAt)).
		Msg("game_mode_exited")
	return nil
}

// AddSpectator marks an agent as watching a game. Spectators keep their
// settings but lose autonomous replies until NotifySpectatorExit.
func (m *ContextManager) AddSpectator(agentID, gameName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.contexts[agentID]; exists {
		return ErrAlreadyInGame
	}
	m.contexts[agentID] = &gameContext{
		role:      RoleSpectator,
		game:      game.CanonicalName(gameName),
		enteredAt: m.now(),
	}
	return nil
}

// NotifySpectatorExit releases a spectator and tells it the game is over.
func (m *ContextManager) NotifySpectatorExit(agentID, gameName string) error {
	m.mu.Lock()
	if gc, ok := m.contexts[agentID]; ok && gc.role == RoleSpectator {
		delete(m.contexts, agentID)
	}
	m.mu.Unlock()

	a, ok := m.dir.Get(agentID)
	if !ok {
		return &AgentStateError{AgentID: agentID, Op: "notify"}
	}
	a.AddMessage(agent.AuthorGameMaster, transitionNotice(game.CanonicalName(gameName), false), "", "", "")
	return nil
}

func transitionNotice(gameName string, played bool) string {
	if played {
		return fmt.Sprintf("The %s game has ended. You are no longer playing. "+
			"Return to your usual persona and conversation style; game rules no longer apply.", gameName)
	}
	return fmt.Sprintf("The %s game you were watching has ended. "+
		"Return to your usual persona and conversation style.", gameName)
}

// UpdateTurnContext sets the private hint for an agent's next prompt. An
// empty hint clears it.
func (m *ContextManager) UpdateTurnContext(agentID, hint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gc, ok := m.contexts[agentID]
	if !ok {
		return ErrNotInGame
	}
	gc.turnContext = strings.TrimSpace(hint)
	return nil
}

func (m *ContextManager) TurnContext(agentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gc, ok := m.contexts[agentID]; ok {
		return gc.turnContext
	}
	return ""
}

// Eligible reports whether an agent may reply on its own: free agents
// always, players only while their move is awaited, spectators never.
func (m *ContextManager) Eligible(agentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	gc, ok := m.contexts[agentID]
	if !ok {
		return true
	}
	return gc.role == RolePlayer && gc.awaiting
}

func (m *ContextManager) setAwaiting(agentID string, awaiting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gc, ok := m.contexts[agentID]; ok {
		gc.awaiting = awaiting
	}
}

func (m *ContextManager) IsInGame(agentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.contexts[agentID]
	return ok
}

func (m *ContextManager) Role(agentID string) (Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gc, ok := m.contexts[agentID]
	if !ok {
		return "", false
	}
	return gc.role, true
}

// ActiveAgents lists every agent currently playing or watching.
func (m *ContextManager) ActiveAgents() []string {
	m.mu.Lock()
	out := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		out = append(out, id)
	}
	m.mu.Unlock()
	sort.Strings(out)
	return out
}
